package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"artbot/pkg/config"
	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
	"artbot/pkg/publisher"
	"artbot/pkg/retry"
)

const (
	// DefaultUploadURL is the v1.1 simple media upload endpoint
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	// DefaultAPIURL is the v2 API root
	DefaultAPIURL = "https://api.twitter.com/2"
	// StatusURLFormat renders the public URL of a post
	StatusURLFormat = "https://x.com/i/web/status/%s"

	maxErrorBody = 4 << 10
)

// Client publishes posts to X using OAuth 1.0a user context
type Client struct {
	httpClient *http.Client
	uploadURL  string
	apiURL     string
	retrier    *retry.Retrier
	logger     logger.Logger
}

// Option customises a Client
type Option func(*options)

type options struct {
	base    *http.Client
	retrier *retry.Retrier
	logger  logger.Logger
}

// WithBaseHTTPClient sets the client whose transport carries signed requests
func WithBaseHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.base = hc }
}

// WithRetrier sets the retrier used for media uploads
func WithRetrier(r *retry.Retrier) Option {
	return func(o *options) { o.retrier = r }
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// NewClient creates a signed X client. All four credential values are required.
func NewClient(cfg config.TwitterConfig, opts ...Option) (*Client, error) {
	var missing []string
	for _, cred := range []struct{ name, value string }{
		{"API_KEY", cfg.APIKey},
		{"API_SECRET", cfg.APISecret},
		{"ACCESS_TOKEN", cfg.AccessToken},
		{"ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret},
	} {
		if strings.TrimSpace(cred.value) == "" {
			missing = append(missing, cred.name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.ErrorTypeAuth, 0, "missing credentials: %s", strings.Join(missing, ", "))
	}

	o := &options{
		retrier: retry.NewRetrier(&retry.Config{MaxAttempts: 1}),
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	ctx := context.Background()
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, o.base)
	}

	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	httpClient := oauthConfig.Client(ctx, token)
	httpClient.Timeout = cfg.Timeout

	uploadURL := cfg.UploadURL
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Client{
		httpClient: httpClient,
		uploadURL:  uploadURL,
		apiURL:     strings.TrimRight(apiURL, "/"),
		retrier:    o.retrier,
		logger:     o.logger,
	}, nil
}

// Publish uploads the image and creates a post referencing it
func (c *Client) Publish(ctx context.Context, post publisher.Post) (*publisher.Receipt, error) {
	if post.Image == nil {
		return nil, errors.New("post has no image")
	}

	mediaID, err := c.UploadMedia(ctx, post.Image, post.Filename)
	if err != nil {
		return nil, fmt.Errorf("media upload: %w", err)
	}

	tweet, err := c.CreateTweet(ctx, post.Caption, []string{mediaID})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	return &publisher.Receipt{
		ID:  tweet.ID,
		URL: fmt.Sprintf(StatusURLFormat, tweet.ID),
	}, nil
}

// UploadMedia uploads an image and returns its media id. Transient failures
// are retried, so the image is buffered in memory first.
func (c *Client) UploadMedia(ctx context.Context, image io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "image"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filename)
	if err != nil {
		return "", fmt.Errorf("creating multipart field: %w", err)
	}
	size, err := io.Copy(part, image)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	c.logger.DebugWithFields("uploading media", map[string]interface{}{
		"filename": filename,
		"size":     size,
	})

	var response mediaUploadResponse
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(payload))
		if err != nil {
			return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", contentType)
		return c.doJSON(req, &response)
	})
	if err != nil {
		return "", err
	}

	mediaID := response.MediaIDString
	if mediaID == "" && response.MediaID != 0 {
		mediaID = strconv.FormatInt(response.MediaID, 10)
	}
	if mediaID == "" {
		return "", errs.New(errs.ErrorTypeParsing, http.StatusOK, "upload response has no media id")
	}

	c.logger.InfoWithFields("Media uploaded", map[string]interface{}{
		"media_id": mediaID,
		"size":     size,
	})
	return mediaID, nil
}

// CreateTweet posts text with the given media attached. It is never retried
// since a lost response could otherwise publish twice.
func (c *Client) CreateTweet(ctx context.Context, text string, mediaIDs []string) (*Tweet, error) {
	request := createTweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		request.Media = &tweetMedia{MediaIDs: mediaIDs}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var response createTweetResponse
	if err := c.doJSON(req, &response); err != nil {
		return nil, err
	}
	if response.Data.ID == "" {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusCreated, "create response has no post id")
	}

	c.logger.InfoWithFields("Post created", map[string]interface{}{
		"tweet_id": response.Data.ID,
	})
	return &response.Data, nil
}

// doJSON sends a signed request and decodes a 2xx JSON body into target
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(req.Context().Err(), context.Canceled) {
			return req.Context().Err()
		}
		return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body apiErrorBody
	message := ""
	if json.Unmarshal(raw, &body) == nil {
		message = body.message()
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	c.logger.WarnWithFields("X API error", map[string]interface{}{
		"status":  resp.StatusCode,
		"url":     resp.Request.URL.String(),
		"message": message,
	})
	return errs.New(errs.TypeForStatus(resp.StatusCode), resp.StatusCode, "%s", message)
}
