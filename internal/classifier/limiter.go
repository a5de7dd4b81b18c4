package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"gitlab.com/yelinaung/expense-importer/internal/gemini"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
)

// DefaultMaxTries bounds attempts per description, the first one included.
const DefaultMaxTries = 3

// RateLimitedSuggester shares one token bucket between every caller and
// retries transient API failures with exponential backoff.
type RateLimitedSuggester struct {
	inner           Suggester
	limiter         *rate.Limiter
	maxTries        uint
	initialInterval time.Duration
}

// NewRateLimitedSuggester allows perSecond calls with the given burst.
func NewRateLimitedSuggester(inner Suggester, perSecond float64, burst int) *RateLimitedSuggester {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimitedSuggester{
		inner:           inner,
		limiter:         rate.NewLimiter(limit, burst),
		maxTries:        DefaultMaxTries,
		initialInterval: 500 * time.Millisecond,
	}
}

// SuggestCategory waits for a token before each attempt. Only errors marked
// gemini.ErrAPICall are retried, and never once ctx is done.
func (s *RateLimitedSuggester) SuggestCategory(ctx context.Context, description string, categories []string) (*gemini.CategorySuggestion, error) {
	attempt := 0
	op := func() (*gemini.CategorySuggestion, error) {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		suggestion, err := s.inner.SuggestCategory(ctx, description, categories)
		if err == nil {
			return suggestion, nil
		}
		if !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}

		logger.Log.Debug().Err(err).
			Int("attempt", attempt).
			Msg("Retrying category suggestion")
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.maxTries),
	)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, gemini.ErrAPICall)
}
