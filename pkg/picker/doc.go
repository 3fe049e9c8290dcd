// Package picker chooses one artwork with a usable image for a search term.
//
// A pick performs one search, then samples candidate IDs uniformly at random
// with replacement, fetching each drawn record until one has an image or the
// attempt budget runs out. The number of record fetches never exceeds the
// budget. Both failure outcomes, an empty or failed search and an exhausted
// budget, satisfy errors.Is(err, errors.ErrNotFound).
package picker
