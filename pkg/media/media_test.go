package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

// noisy produces an image that compresses poorly
func noisy(w, h int) *image.RGBA {
	r := rand.New(rand.NewPCG(1, 2))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.IntN(256))
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	var jpg, gf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, solid(40, 30), nil))
	require.NoError(t, gif.Encode(&gf, solid(8, 9), nil))

	tests := []struct {
		name   string
		data   []byte
		format string
		w, h   int
	}{
		{"png", encodePNG(t, solid(20, 10)), FormatPNG, 20, 10},
		{"jpeg", jpg.Bytes(), FormatJPEG, 40, 30},
		{"gif", gf.Bytes(), FormatGIF, 8, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, info.Format)
			assert.Equal(t, tt.w, info.Width)
			assert.Equal(t, tt.h, info.Height)
			assert.Equal(t, len(tt.data), info.Size)
		})
	}
}

func TestInspectRejectsNonImages(t *testing.T) {
	_, err := Inspect([]byte("<html>not an image</html>"))
	assert.Error(t, err)
}

func TestExtensionAndMIMEType(t *testing.T) {
	assert.Equal(t, ".jpg", Extension(FormatJPEG))
	assert.Equal(t, ".webp", Extension(FormatWebP))
	assert.Equal(t, ".img", Extension("tiff"))
	assert.Equal(t, "image/png", MIMEType(FormatPNG))
	assert.Equal(t, "application/octet-stream", MIMEType("tiff"))
}

func TestFitForUploadKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, solid(64, 64))

	out, info, err := FitForUpload(data, Limits{MaxBytes: 1 << 20, MaxDimension: 128})

	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, FormatPNG, info.Format)
}

func TestFitForUploadScalesLargeDimensions(t *testing.T) {
	data := encodePNG(t, solid(400, 200))

	out, info, err := FitForUpload(data, Limits{MaxBytes: 1 << 20, MaxDimension: 100})

	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, info.Format)
	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 50, info.Height)

	decoded, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, decoded.Format)
	assert.Equal(t, 100, decoded.Width)
}

func TestFitForUploadShrinksBytes(t *testing.T) {
	data := encodePNG(t, noisy(300, 300))
	limit := int64(len(data) / 4)

	out, info, err := FitForUpload(data, Limits{MaxBytes: limit, MaxDimension: 4096})

	require.NoError(t, err)
	assert.LessOrEqual(t, int64(len(out)), limit)
	assert.Equal(t, FormatJPEG, info.Format)
	assert.LessOrEqual(t, info.Width, 300)
}

func TestFitForUploadImpossibleLimit(t *testing.T) {
	data := encodePNG(t, noisy(50, 50))

	_, _, err := FitForUpload(data, Limits{MaxBytes: 10})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be reduced")
}

func TestFitDimensions(t *testing.T) {
	w, h := fitDimensions(1000, 500, 200, 200)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	w, h = fitDimensions(50, 40, 200, 200)
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)

	w, h = fitDimensions(10000, 1, 100, 100)
	assert.Equal(t, 100, w)
	assert.Equal(t, 1, h)
}
