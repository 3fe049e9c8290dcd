package bot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
	"artbot/pkg/media"
	"artbot/pkg/picker"
	"artbot/pkg/publisher"
	"artbot/pkg/storage"
)

type stubPicker struct {
	artwork *picker.Artwork
	err     error
}

func (s *stubPicker) Pick(ctx context.Context, term string, maxAttempts int) (*picker.Artwork, error) {
	return s.artwork, s.err
}

type stubImages struct {
	data  []byte
	err   error
	calls int
}

func (s *stubImages) DownloadImage(ctx context.Context, imageURL string, maxBytes int64) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

type recordingPublisher struct {
	dir      string
	err      error
	panicked bool
	paths    []string
	existed  []bool
	posts    []publisher.Post
	images   [][]byte
}

func (r *recordingPublisher) Publish(ctx context.Context, post publisher.Post) (*publisher.Receipt, error) {
	path := filepath.Join(r.dir, post.Filename)
	_, statErr := os.Stat(path)
	r.paths = append(r.paths, path)
	r.existed = append(r.existed, statErr == nil)
	r.posts = append(r.posts, post)

	data, _ := io.ReadAll(post.Image)
	r.images = append(r.images, data)

	if r.panicked {
		panic("publisher crashed")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &publisher.Receipt{ID: "42", URL: "https://x.com/i/web/status/42"}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func artwork() *picker.Artwork {
	a := picker.NewArtwork(436535, "Wheat Field with Cypresses", "Vincent van Gogh",
		"https://www.metmuseum.org/art/collection/search/436535", "https://images.test/436535.png")
	return &a
}

func newBot(t *testing.T, p ArtworkPicker, images ImageDownloader, pub publisher.Publisher) (*Bot, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	settings := Settings{
		MaxAttempts:   10,
		MaxImageBytes: 1 << 20,
		Upload:        media.Limits{MaxBytes: 1 << 20, MaxDimension: 4096},
	}
	return New(p, images, store, pub, settings, logger.NewNopLogger()), store
}

func assertStagingEmpty(t *testing.T, store *storage.Manager) {
	t.Helper()
	entries, err := os.ReadDir(store.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "temp directory should be empty")
	assert.Equal(t, 0, store.Outstanding())
}

func TestRunPublishesAndCleansUp(t *testing.T) {
	data := pngBytes(t)
	images := &stubImages{data: data}
	pub := &recordingPublisher{}
	b, store := newBot(t, &stubPicker{artwork: artwork()}, images, pub)
	pub.dir = store.TempDir()

	result, err := b.Run(context.Background(), "cypress")

	require.NoError(t, err)
	assert.Equal(t, "42", result.Receipt.ID)
	assert.Equal(t,
		"Wheat Field with Cypresses by Vincent van Gogh. See more: https://www.metmuseum.org/art/collection/search/436535",
		result.Caption)
	assert.Equal(t, media.FormatPNG, result.Image.Format)

	require.Len(t, pub.posts, 1)
	assert.Equal(t, result.Caption, pub.posts[0].Caption)
	assert.Equal(t, "image/png", pub.posts[0].MIMEType)
	assert.Equal(t, ".png", filepath.Ext(pub.posts[0].Filename))
	assert.Equal(t, data, pub.images[0])

	assert.True(t, pub.existed[0], "file exists while publishing")
	assert.NoFileExists(t, pub.paths[0])
	assertStagingEmpty(t, store)
}

func TestRunPublishFailureCleansUp(t *testing.T) {
	cause := errs.New(errs.ErrorTypeAuth, 401, "invalid token")
	pub := &recordingPublisher{err: cause}
	b, store := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{data: pngBytes(t)}, pub)
	pub.dir = store.TempDir()

	result, err := b.Run(context.Background(), "cat")

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPublishFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotNil(t, result)
	assert.Nil(t, result.Receipt)

	assert.True(t, pub.existed[0])
	assert.NoFileExists(t, pub.paths[0])
	assertStagingEmpty(t, store)
}

func TestRunPublisherPanicCleansUp(t *testing.T) {
	pub := &recordingPublisher{panicked: true}
	b, store := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{data: pngBytes(t)}, pub)
	pub.dir = store.TempDir()

	assert.Panics(t, func() {
		_, _ = b.Run(context.Background(), "cat")
	})

	require.Len(t, pub.paths, 1)
	assert.NoFileExists(t, pub.paths[0])
	assertStagingEmpty(t, store)
}

func TestRunPickNotFound(t *testing.T) {
	images := &stubImages{}
	pub := &recordingPublisher{}
	b, store := newBot(t, &stubPicker{err: errs.ErrSearchFailed}, images, pub)

	_, err := b.Run(context.Background(), "zzzz")

	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, images.calls)
	assert.Empty(t, pub.posts)
	assertStagingEmpty(t, store)
}

func TestRunImageDownloadFailure(t *testing.T) {
	cause := errs.New(errs.ErrorTypeNotFound, 404, "resource not found")
	pub := &recordingPublisher{}
	b, store := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{err: cause}, pub)

	result, err := b.Run(context.Background(), "cat")

	assert.ErrorIs(t, err, errs.ErrImageDownloadFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, 436535, result.Artwork.ObjectID)
	assert.Empty(t, pub.posts)
	assertStagingEmpty(t, store)
}

func TestRunRejectsNonImage(t *testing.T) {
	pub := &recordingPublisher{}
	b, store := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{data: []byte("<html>")}, pub)

	_, err := b.Run(context.Background(), "cat")

	assert.ErrorIs(t, err, errs.ErrImageDownloadFailed)
	assert.Empty(t, pub.posts)
	assertStagingEmpty(t, store)
}

func TestRunWithDryRun(t *testing.T) {
	dry := publisher.NewDryRun(nil)
	b, store := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{data: pngBytes(t)}, dry)

	result, err := b.Run(context.Background(), "cat")

	require.NoError(t, err)
	assert.Equal(t, "dry-run-1", result.Receipt.ID)
	require.Len(t, dry.Posts(), 1)
	assert.Equal(t, int64(len(pngBytes(t))), dry.Posts()[0].ImageSize)
	assertStagingEmpty(t, store)
}

func TestRunWrapsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, _ := newBot(t, &stubPicker{artwork: artwork()}, &stubImages{data: pngBytes(t)}, publisher.NewDryRun(nil))

	_, err := b.Run(ctx, "cat")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.ErrorIs(t, err, errs.ErrPublishFailed)
}
