package bot

import (
	"context"
	"fmt"
	"time"

	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
	"artbot/pkg/media"
	"artbot/pkg/picker"
	"artbot/pkg/publisher"
	"artbot/pkg/storage"
)

// ArtworkPicker selects the artwork to post
type ArtworkPicker interface {
	Pick(ctx context.Context, term string, maxAttempts int) (*picker.Artwork, error)
}

// ImageDownloader fetches image bytes
type ImageDownloader interface {
	DownloadImage(ctx context.Context, imageURL string, maxBytes int64) ([]byte, error)
}

// Settings bounds one run
type Settings struct {
	MaxAttempts   int
	MaxImageBytes int64
	Upload        media.Limits
}

// Result describes a completed run
type Result struct {
	Artwork  *picker.Artwork
	Caption  string
	Image    media.Info
	Receipt  *publisher.Receipt
	Duration time.Duration
}

// Bot runs pick, download, stage and publish for one search term
type Bot struct {
	picker    ArtworkPicker
	images    ImageDownloader
	storage   *storage.Manager
	publisher publisher.Publisher
	settings  Settings
	logger    logger.Logger
}

// New creates a Bot from its collaborators
func New(p ArtworkPicker, images ImageDownloader, store *storage.Manager, pub publisher.Publisher, settings Settings, log logger.Logger) *Bot {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Bot{
		picker:    p,
		images:    images,
		storage:   store,
		publisher: pub,
		settings:  settings,
		logger:    log,
	}
}

// Run posts one artwork matching term. The staged image is removed before
// Run returns, whatever the outcome.
func (b *Bot) Run(ctx context.Context, term string) (*Result, error) {
	start := time.Now()
	log := b.logger.WithField("term", term)

	artwork, err := b.picker.Pick(ctx, term, b.settings.MaxAttempts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Artwork: artwork,
		Caption: picker.Caption(*artwork),
	}
	log = log.WithField("object_id", artwork.ObjectID)

	data, err := b.images.DownloadImage(ctx, artwork.ImageURL, b.settings.MaxImageBytes)
	if err != nil {
		return result, fmt.Errorf("%w: %w", errs.ErrImageDownloadFailed, err)
	}

	data, info, err := media.FitForUpload(data, b.settings.Upload)
	if err != nil {
		return result, fmt.Errorf("%w: %w", errs.ErrImageDownloadFailed, err)
	}
	result.Image = info

	log.DebugWithFields("Image ready", map[string]interface{}{
		"format": info.Format,
		"width":  info.Width,
		"height": info.Height,
		"size":   info.Size,
	})

	err = b.storage.WithStagedFile(data, media.Extension(info.Format), func(file *storage.StagedFile) error {
		image, err := file.Open()
		if err != nil {
			return err
		}
		defer image.Close()

		receipt, err := b.publisher.Publish(ctx, publisher.Post{
			Caption:  result.Caption,
			Image:    image,
			Filename: file.Name(),
			MIMEType: media.MIMEType(info.Format),
		})
		if err != nil {
			return err
		}
		result.Receipt = receipt
		return nil
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("%w: %w", errs.ErrPublishFailed, err)
	}

	log.InfoWithFields("Artwork posted", map[string]interface{}{
		"post_id":  result.Receipt.ID,
		"post_url": result.Receipt.URL,
		"duration": result.Duration.String(),
	})
	return result, nil
}
