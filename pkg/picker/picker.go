package picker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	errs "artbot/pkg/errors"
	"artbot/pkg/logger"
)

// SearchService returns the candidate object IDs for a search term
type SearchService interface {
	Search(ctx context.Context, term string) ([]int, error)
}

// ObjectService fetches a single artwork record
type ObjectService interface {
	FetchArtwork(ctx context.Context, objectID int) (*Artwork, error)
}

// ExhaustedError reports a pick that used every attempt without finding an
// eligible artwork. It matches errs.ErrSelectionExhausted and errs.ErrNotFound.
type ExhaustedError struct {
	Term        string
	Attempts    int
	FetchErrors int
	Ineligible  int
	// LastErr is the most recent fetch failure, if any
	LastErr error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%v: no image for %q after %d attempts (%d fetch errors, %d without image)",
		errs.ErrSelectionExhausted, e.Term, e.Attempts, e.FetchErrors, e.Ineligible)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() []error {
	if e.LastErr == nil {
		return []error{errs.ErrSelectionExhausted}
	}
	return []error{errs.ErrSelectionExhausted, e.LastErr}
}

// Picker selects a random artwork with an image for a search term
type Picker struct {
	search  SearchService
	objects ObjectService
	intn    func(n int) int
	logger  logger.Logger
}

// Option customises a Picker
type Option func(*Picker)

// WithRand sets the source of uniform draws in [0, n)
func WithRand(intn func(n int) int) Option {
	return func(p *Picker) { p.intn = intn }
}

// WithLogger sets the picker logger
func WithLogger(log logger.Logger) Option {
	return func(p *Picker) { p.logger = log }
}

// New creates a Picker over the given collaborators
func New(search SearchService, objects ObjectService, opts ...Option) *Picker {
	p := &Picker{
		search:  search,
		objects: objects,
		intn:    rand.IntN,
		logger:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pick searches once, then draws up to maxAttempts candidates uniformly at
// random with replacement and returns the first one that has an image.
// Fetch failures and records without an image both consume an attempt.
func (p *Picker) Pick(ctx context.Context, term string, maxAttempts int) (*Artwork, error) {
	log := p.logger.WithFields(map[string]interface{}{
		"term":         term,
		"max_attempts": maxAttempts,
	})

	candidates, err := p.search.Search(ctx, term)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pick cancelled during search: %w", ctxErr)
		}
		log.WithError(err).Warn("Search failed")
		return nil, fmt.Errorf("%w: %w", errs.ErrSearchFailed, err)
	}
	if len(candidates) == 0 {
		log.Warn("Search returned no candidates")
		return nil, fmt.Errorf("%w: no results for %q", errs.ErrSearchFailed, term)
	}

	log.DebugWithFields("Search returned candidates", map[string]interface{}{
		"candidates": len(candidates),
	})

	exhausted := &ExhaustedError{Term: term}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pick cancelled after %d attempts: %w", exhausted.Attempts, ctxErr)
		}

		objectID := candidates[p.intn(len(candidates))]
		exhausted.Attempts++

		artwork, err := p.objects.FetchArtwork(ctx, objectID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("pick cancelled after %d attempts: %w", exhausted.Attempts, ctxErr)
			}
			exhausted.FetchErrors++
			exhausted.LastErr = err
			logger.LogAttempt(log, attempt, maxAttempts, objectID, "fetch_error")
		case !artwork.Eligible():
			exhausted.Ineligible++
			logger.LogAttempt(log, attempt, maxAttempts, objectID, "no_image")
		default:
			logger.LogAttempt(log, attempt, maxAttempts, objectID, "selected")
			log.InfoWithFields("Artwork selected", map[string]interface{}{
				"object_id": artwork.ObjectID,
				"title":     artwork.Title,
				"attempts":  attempt,
			})
			return artwork, nil
		}
	}

	log.WarnWithFields("Selection exhausted", map[string]interface{}{
		"fetch_errors": exhausted.FetchErrors,
		"ineligible":   exhausted.Ineligible,
	})
	return nil, exhausted
}

// IsNotFound reports whether err is a NotFound pick outcome
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
