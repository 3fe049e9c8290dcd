package met

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"artbot/pkg/config"
	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
	"artbot/pkg/picker"
	"artbot/pkg/ratelimit"
	"artbot/pkg/retry"
)

// maxResponseBytes caps a decoded API response
const maxResponseBytes = 8 << 20

// Client talks to the museum collection API and downloads artwork images
type Client struct {
	httpClient      *http.Client
	headers         map[string]string
	baseURL         string
	apiTimeout      time.Duration
	downloadTimeout time.Duration
	limiter         ratelimit.Limiter
	retrier         *retry.Retrier
	logger          logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter paces every request through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetrier sets the retrier used for image downloads
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithDownloadTimeout bounds each image download attempt
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) { c.downloadTimeout = d }
}

// NewClient creates a collection API client
func NewClient(cfg config.MuseumConfig, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient: &http.Client{},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "application/json",
			"Accept-Encoding": acceptEncoding,
		},
		baseURL:         baseURL,
		apiTimeout:      cfg.Timeout,
		downloadTimeout: 60 * time.Second,
		limiter:         ratelimit.NewTokenBucket(0, 1),
		retrier:         retry.NewRetrier(&retry.Config{MaxAttempts: 1}),
		logger:          logger.GetLogger(),
	}
	if cfg.UserAgent == "" {
		delete(c.headers, "User-Agent")
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest waits for the limiter, sends req and logs the outcome
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(req.Context().Err(), context.Canceled) {
			return nil, req.Context().Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	return c.doRequest(req)
}

// getJSON performs a GET request and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	if c.apiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.apiTimeout)
		defer cancel()
	}

	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := decodeBody(resp)
	if err != nil {
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "%v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes+1))
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	if len(data) > maxResponseBytes {
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "response exceeds %d bytes", maxResponseBytes)
	}

	if err := json.Unmarshal(data, target); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// checkResponseStatus maps non-2xx responses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorType := errs.TypeForStatus(resp.StatusCode)
	fields := map[string]interface{}{
		"status":    resp.StatusCode,
		"url":       resp.Request.URL.String(),
		"retryable": errs.IsRetryableStatusCode(resp.StatusCode),
	}

	var message string
	switch errorType {
	case errs.ErrorTypeAuth:
		message = "access denied"
		c.logger.WarnWithFields("authentication error", fields)
	case errs.ErrorTypeNotFound:
		message = "resource not found"
		c.logger.DebugWithFields("resource not found", fields)
	case errs.ErrorTypeRateLimit:
		message = "rate limit exceeded"
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeServerError:
		message = "server error"
		c.logger.ErrorWithFields("server error", fields)
	default:
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return errs.New(errorType, resp.StatusCode, "%s", message)
}

// Search returns the IDs of objects with images matching term. A null
// objectIDs field yields an empty slice.
func (c *Client) Search(ctx context.Context, term string) ([]int, error) {
	url := SearchURL(c.baseURL, term)

	c.logger.DebugWithFields("searching collection", map[string]interface{}{
		"term": term,
		"url":  url,
	})

	var response SearchResponse
	if err := c.getJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	ids := response.ObjectIDs
	if ids == nil {
		ids = []int{}
	}

	c.logger.DebugWithFields("search completed", map[string]interface{}{
		"term":       term,
		"total":      response.Total,
		"candidates": len(ids),
	})
	return ids, nil
}

// FetchObject retrieves one object record
func (c *Client) FetchObject(ctx context.Context, objectID int) (*Object, error) {
	var object Object
	if err := c.getJSON(ctx, ObjectURL(c.baseURL, objectID), &object); err != nil {
		return nil, err
	}
	if object.ObjectID == 0 {
		object.ObjectID = objectID
	}
	return &object, nil
}

// FetchArtwork retrieves one object record as a picker artwork
func (c *Client) FetchArtwork(ctx context.Context, objectID int) (*picker.Artwork, error) {
	object, err := c.FetchObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if !object.HasImage() {
		c.logger.DebugWithFields("object has no primary image", map[string]interface{}{
			"object_id": objectID,
		})
	}
	artwork := object.Artwork()
	return &artwork, nil
}

// Artwork converts the record into the picker's artwork model
func (o *Object) Artwork() picker.Artwork {
	return picker.NewArtwork(o.ObjectID, o.Title, o.ArtistDisplayName, o.ObjectURL, o.PrimaryImage)
}

// DownloadImage fetches an image, retrying transient failures. Bodies larger
// than maxBytes are rejected; maxBytes <= 0 disables the cap.
func (c *Client) DownloadImage(ctx context.Context, imageURL string, maxBytes int64) ([]byte, error) {
	c.logger.DebugWithFields("downloading image", map[string]interface{}{
		"url": imageURL,
	})

	var data []byte
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.downloadOnce(ctx, imageURL, maxBytes)
		return err
	})
	if err != nil {
		c.logger.ErrorWithFields("failed to download image", map[string]interface{}{
			"url":   imageURL,
			"error": err.Error(),
		})
		return nil, err
	}

	c.logger.DebugWithFields("successfully downloaded image", map[string]interface{}{
		"url":  imageURL,
		"size": len(data),
	})
	return data, nil
}

func (c *Client) downloadOnce(ctx context.Context, imageURL string, maxBytes int64) ([]byte, error) {
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	resp, err := c.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode,
			"image is %d bytes, limit is %d", resp.ContentLength, maxBytes)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "%v", err)
	}
	defer body.Close()

	var reader io.Reader = body
	if maxBytes > 0 {
		reader = io.LimitReader(body, maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to read image: %v", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "image exceeds %d bytes", maxBytes)
	}
	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "image body is empty")
	}

	return data, nil
}
