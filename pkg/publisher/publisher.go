package publisher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"artbot/pkg/logger"
)

// Post is one image plus the caption to publish with it
type Post struct {
	Caption  string
	Image    io.Reader
	Filename string
	MIMEType string
}

// Receipt identifies a published post
type Receipt struct {
	ID  string
	URL string
}

// Publisher sends a post to a social platform
type Publisher interface {
	Publish(ctx context.Context, post Post) (*Receipt, error)
}

// DryRun consumes posts without publishing them. The image is still read
// to the end so staging and reading are exercised as in a real run.
type DryRun struct {
	logger logger.Logger

	mu    sync.Mutex
	posts []Recorded
}

// Recorded is a post accepted by DryRun
type Recorded struct {
	Caption   string
	Filename  string
	MIMEType  string
	ImageSize int64
}

// NewDryRun creates a publisher that only logs
func NewDryRun(log logger.Logger) *DryRun {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &DryRun{logger: log}
}

// Publish reads the image and records the post
func (d *DryRun) Publish(ctx context.Context, post Post) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var size int64
	if post.Image != nil {
		n, err := io.Copy(io.Discard, post.Image)
		if err != nil {
			return nil, fmt.Errorf("reading image: %w", err)
		}
		size = n
	}

	d.mu.Lock()
	d.posts = append(d.posts, Recorded{
		Caption:   post.Caption,
		Filename:  post.Filename,
		MIMEType:  post.MIMEType,
		ImageSize: size,
	})
	id := fmt.Sprintf("dry-run-%d", len(d.posts))
	d.mu.Unlock()

	d.logger.InfoWithFields("Dry run, post not published", map[string]interface{}{
		"caption":    post.Caption,
		"filename":   post.Filename,
		"image_size": size,
	})

	return &Receipt{ID: id}, nil
}

// Posts returns the posts recorded so far
func (d *DryRun) Posts() []Recorded {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Recorded, len(d.posts))
	copy(out, d.posts)
	return out
}
