// Package met is a client for The Metropolitan Museum of Art collection API.
//
// It provides the two lookups the artwork picker needs, search and object
// retrieval, plus the image download used before publishing. All requests
// share a rate limiter and decode gzip, brotli or zstd encoded bodies.
// Only image downloads are retried; search and object lookups surface their
// first failure so the picker can count attempts exactly.
//
// Usage:
//
//	client := met.NewClient(cfg.Museum,
//		met.WithLimiter(ratelimit.NewTokenBucket(20, 1)),
//		met.WithLogger(log),
//	)
//	ids, err := client.Search(ctx, "cat")
package met
