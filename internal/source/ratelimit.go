package source

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited keeps a source under its read quota. Every Fetch waits for a
// token first; a cancelled context stops the wait.
type RateLimited struct {
	inner   Source
	limiter *rate.Limiter
}

// NewRateLimited wraps src so at most perSecond fetches start each second,
// with bursts of up to burst fetches. A non-positive rate disables limiting.
func NewRateLimited(src Source, perSecond float64, burst int) Source {
	if perSecond <= 0 {
		return src
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: src, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Name implements Source.
func (r *RateLimited) Name() string { return r.inner.Name() }

// Fetch implements Source.
func (r *RateLimited) Fetch(ctx context.Context, sheet, rng string) (Grid, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Grid{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.Fetch(ctx, sheet, rng)
}
