package sources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiter shared by all requests of a single
// source client. Both upstream APIs publish per-client request budgets;
// Semantic Scholar allows only 1 req/s without an API key.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter sustaining ratePerSecond with the given
// burst capacity.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow consumes a token without blocking, reporting whether one was
// available.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
