// Package ratelimit paces outbound requests to the museum collection API.
//
// The collection API asks clients to stay under a fixed number of requests
// per second. TokenBucket wraps golang.org/x/time/rate so every request can
// call Wait(ctx) and honour cancellation while it is held back.
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(20, 1)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
