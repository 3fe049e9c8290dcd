// Package retry retries idempotent transfers that fail transiently, such as
// the artwork image download and the media upload.
//
// Failures are classified through artbot/pkg/errors: network, rate limit and
// server errors are retried, everything else (auth, not found, parsing,
// context cancellation) returns immediately. ErrorTypeBackoff selects a
// separate backoff curve for each of those retryable types.
//
// Basic usage:
//
//	r := retry.NewRetrier(retry.FromSettings(cfg.Retry, log))
//	err := r.Do(ctx, func(ctx context.Context) error {
//		return upload(ctx)
//	})
//
// Non-idempotent calls, like creating a post, must not be wrapped.
package retry
