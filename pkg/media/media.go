package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Supported image formats, named as image.DecodeConfig reports them
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
)

// Info describes a decoded image header
type Info struct {
	Format string
	Width  int
	Height int
	Size   int
}

// Inspect reads the image header without decoding pixel data
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("unrecognised image: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height, Size: len(data)}, nil
}

// Extension returns the file extension, including the dot, for format
func Extension(format string) string {
	switch format {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	case FormatWebP:
		return ".webp"
	default:
		return ".img"
	}
}

// MIMEType returns the media type for format
func MIMEType(format string) string {
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF, FormatWebP:
		return "image/" + format
	default:
		return "application/octet-stream"
	}
}

// Limits bounds what the publisher accepts
type Limits struct {
	MaxBytes     int64
	MaxDimension int
}

// jpegQualities are tried in order until the encoded image fits
var jpegQualities = []int{90, 80, 70, 60}

// FitForUpload returns data unchanged when it is already within limits.
// Otherwise the image is scaled to MaxDimension and re-encoded as JPEG,
// lowering quality and then halving dimensions until it fits MaxBytes.
func FitForUpload(data []byte, limits Limits) ([]byte, Info, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, Info{}, err
	}

	if withinLimits(info, limits) {
		return data, info, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decoding image: %w", err)
	}

	maxDim := limits.MaxDimension
	if maxDim <= 0 {
		maxDim = max(info.Width, info.Height)
	}

	for maxDim >= 1 {
		w, h := fitDimensions(info.Width, info.Height, maxDim, maxDim)
		scaled := flatten(img, w, h)

		for _, quality := range jpegQualities {
			out, err := encodeJPEG(scaled, quality)
			if err != nil {
				return nil, Info{}, err
			}
			if limits.MaxBytes <= 0 || int64(len(out)) <= limits.MaxBytes {
				return out, Info{Format: FormatJPEG, Width: w, Height: h, Size: len(out)}, nil
			}
		}
		maxDim /= 2
	}

	return nil, Info{}, fmt.Errorf("image cannot be reduced below %d bytes", limits.MaxBytes)
}

func withinLimits(info Info, limits Limits) bool {
	if limits.MaxBytes > 0 && int64(info.Size) > limits.MaxBytes {
		return false
	}
	if limits.MaxDimension > 0 && (info.Width > limits.MaxDimension || info.Height > limits.MaxDimension) {
		return false
	}
	return true
}

// flatten scales img to w x h over a white background, since JPEG has no alpha
func flatten(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	bounds := img.Bounds()
	if bounds.Dx() == w && bounds.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	}
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fitDimensions scales origW x origH to fit within maxW x maxH keeping the
// aspect ratio. Images that already fit are returned unchanged.
func fitDimensions(origW, origH, maxW, maxH int) (int, int) {
	if origW <= maxW && origH <= maxH {
		return origW, origH
	}

	ratio := math.Min(float64(maxW)/float64(origW), float64(maxH)/float64(origH))
	newW := max(int(math.Round(float64(origW)*ratio)), 1)
	newH := max(int(math.Round(float64(origH)*ratio)), 1)
	return newW, newH
}
