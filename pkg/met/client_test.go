package met

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artbot/pkg/config"
	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
	"artbot/pkg/retry"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.MuseumConfig{BaseURL: server.URL, UserAgent: "artbot-test", Timeout: 5 * time.Second}
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	return NewClient(cfg, opts...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestURLs(t *testing.T) {
	assert.Equal(t,
		"https://collectionapi.metmuseum.org/public/collection/v1/search?hasImages=true&q=cat",
		SearchURL(DefaultBaseURL, "cat"))
	assert.Equal(t, "http://m.test/v1/search?hasImages=true&q=water+lilies", SearchURL("http://m.test/v1/", "water lilies"))
	assert.Equal(t, "http://m.test/v1/objects/436535", ObjectURL("http://m.test/v1", 436535))
}

func TestSearch(t *testing.T) {
	var gotQuery, gotUA string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		writeJSON(w, map[string]interface{}{"total": 3, "objectIDs": []int{1, 2, 3}})
	}))

	ids, err := client.Search(context.Background(), "cat")

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, "hasImages=true&q=cat", gotQuery)
	assert.Equal(t, "artbot-test", gotUA)
}

func TestSearchNullObjectIDs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0,"objectIDs":null}`))
	}))

	ids, err := client.Search(context.Background(), "qwxz")

	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestSearchErrorStatuses(t *testing.T) {
	tests := []struct {
		status   int
		wantType errs.ErrorType
	}{
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))

			_, err := client.Search(context.Background(), "cat")

			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "search is never retried")
		})
	}
}

func TestErrorStatusLogsRetryability(t *testing.T) {
	testLog := logger.NewTestLogger()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), WithLogger(testLog))

	_, err := client.Search(context.Background(), "cat")
	require.Error(t, err)

	messages := testLog.GetMessagesByLevel("ERROR")
	require.Len(t, messages, 1)
	assert.Equal(t, "server error", messages[0].Message)
	assert.Equal(t, true, messages[0].Fields["retryable"])
	assert.Equal(t, http.StatusServiceUnavailable, messages[0].Fields["status"])
}

func TestFetchArtworkLogsMissingImage(t *testing.T) {
	testLog := logger.NewTestLogger()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"objectID": 12, "title": "Sketchbook", "primaryImage": ""})
	}), WithLogger(testLog))

	artwork, err := client.FetchArtwork(context.Background(), 12)
	require.NoError(t, err)
	assert.False(t, artwork.Eligible())
	assert.True(t, testLog.HasMessage("object has no primary image"))
}

func TestSearchMalformedJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))

	_, err := client.Search(context.Background(), "cat")

	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestSearchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(config.MuseumConfig{BaseURL: server.URL}, WithLogger(logger.NewNopLogger()))
	_, err := client.Search(context.Background(), "cat")

	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestCompressedResponses(t *testing.T) {
	body := []byte(`{"total":2,"objectIDs":[7,8]}`)

	encoders := map[string]func([]byte) []byte{
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write(b)
			_ = zw.Close()
			return buf.Bytes()
		},
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write(b)
			_ = bw.Close()
			return buf.Bytes()
		},
		"zstd": func(b []byte) []byte {
			enc, _ := zstd.NewWriter(nil)
			defer enc.Close()
			return enc.EncodeAll(b, nil)
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), encoding)
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(encode(body))
			}))

			ids, err := client.Search(context.Background(), "cat")

			require.NoError(t, err)
			assert.Equal(t, []int{7, 8}, ids)
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "compress")
		_, _ = w.Write([]byte("???"))
	}))

	_, err := client.Search(context.Background(), "cat")

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "unsupported content encoding")
}

func TestOversizedCompressedResponse(t *testing.T) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, _ = zw.Write(bytes.Repeat([]byte(" "), maxResponseBytes+1))
	require.NoError(t, zw.Close())

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(compressed.Bytes())
	}))

	_, err := client.Search(context.Background(), "cat")

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "response exceeds")
}

func TestFetchArtwork(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/objects/45734":
			writeJSON(w, map[string]interface{}{
				"objectID":          45734,
				"title":             "Quail and Millet",
				"artistDisplayName": "Kiyohara Yukinobu",
				"objectURL":         "https://www.metmuseum.org/art/collection/search/45734",
				"primaryImage":      "https://images.metmuseum.org/45734.jpg",
			})
		case "/objects/99":
			writeJSON(w, map[string]interface{}{"objectID": 99, "primaryImage": ""})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	artwork, err := client.FetchArtwork(context.Background(), 45734)
	require.NoError(t, err)
	assert.Equal(t, "Quail and Millet", artwork.Title)
	assert.Equal(t, "Kiyohara Yukinobu", artwork.Artist)
	assert.Equal(t, "https://www.metmuseum.org/art/collection/search/45734", artwork.DetailURL)
	assert.True(t, artwork.Eligible())

	bare, err := client.FetchArtwork(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", bare.Title)
	assert.Equal(t, "Unknown Artist", bare.Artist)
	assert.False(t, bare.Eligible())

	_, err = client.FetchArtwork(context.Background(), 1)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
}

func TestDownloadImageRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}), WithRetrier(retry.NewRetrier(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	})))

	data, err := client.DownloadImage(context.Background(), client.BaseURL()+"/img.jpg", 1<<20)

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDownloadImageNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}), WithRetrier(retry.NewRetrier(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	})))

	_, err := client.DownloadImage(context.Background(), client.BaseURL()+"/missing.jpg", 0)

	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDownloadImageSizeCap(t *testing.T) {
	payload := strings.Repeat("x", 2048)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chunked.jpg" {
			// Flushing first forces chunked encoding, so no Content-Length
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write([]byte(payload))
	}))

	for _, path := range []string{"/sized.jpg", "/chunked.jpg"} {
		_, err := client.DownloadImage(context.Background(), client.BaseURL()+path, 1024)
		require.Error(t, err, path)
		assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err), path)
	}

	data, err := client.DownloadImage(context.Background(), client.BaseURL()+"/sized.jpg", 4096)
	require.NoError(t, err)
	assert.Len(t, data, 2048)
}

func TestDownloadImageEmptyBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := client.DownloadImage(context.Background(), client.BaseURL()+"/empty.jpg", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

type countingLimiter struct{ waits int32 }

func (c *countingLimiter) Allow() bool { return true }
func (c *countingLimiter) Reset()      {}
func (c *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&c.waits, 1)
	return ctx.Err()
}

func TestRequestsArePaced(t *testing.T) {
	limiter := &countingLimiter{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"total": 1, "objectIDs": []int{1}})
	}), WithLimiter(limiter))

	_, _ = client.Search(context.Background(), "a")
	_, _ = client.Search(context.Background(), "b")

	assert.Equal(t, int32(2), atomic.LoadInt32(&limiter.waits))
}

func TestCancelledContextStopsRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "cat")
	assert.ErrorIs(t, err, context.Canceled)
}
