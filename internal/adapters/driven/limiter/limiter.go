// Package limiter provides proactive request throttling for provider
// adapters.
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound requests to an embedding or LLM provider
// using a token bucket. A nil Limiter imposes no throttling, so
// adapters can hold one unconditionally.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a limiter sustaining requestsPerSecond. A zero or
// negative rate returns nil, which Wait treats as unlimited.
func New(requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a request may proceed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.bucket == nil {
		return nil
	}
	return l.bucket.Wait(ctx)
}
