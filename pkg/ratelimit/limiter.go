// Package ratelimit spaces out loop-boundary LLM calls using a token
// bucket from golang.org/x/time/rate rather than a bare time.Sleep,
// following the teacher's dependency on golang.org/x/time for any
// space-out-calls-to-an-external-endpoint concern.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles loop iterations to one permit every waitSec seconds,
// with a burst of one (no credit accumulates across idle periods).
type Limiter struct {
	inner *rate.Limiter
}

// New builds a Limiter. waitSec <= 0 disables throttling entirely.
func New(waitSec float64) *Limiter {
	if waitSec <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(1/waitSec), 1)}
}

// Wait blocks until one permit is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}
