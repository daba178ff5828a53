package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a token bucket shared by all delivery workers, enforcing a
// steady-state outbound email rate toward the transport provider.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter granting ratePerSec sends per second.
func New(ratePerSec int) *SendLimiter {
	return &SendLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Wait blocks until a token is available.
// Called by each worker immediately before invoking the transport.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
