package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles the rate of outbound LLM calls to guard against cost
// overruns, the Go-idiom equivalent of the original per-request limiter
// (there guarding HTTP endpoints; here guarding the router directly, since
// this system has no HTTP endpoint that issues LLM calls synchronously).
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing callsPerSecond sustained calls
// with a burst of burst.
func NewRateLimiter(callsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst)}
}

// Wait blocks until a call is permitted or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
