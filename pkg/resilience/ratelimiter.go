// Package resilience provides the rate limiter and circuit breaker used in
// front of external collaborators (the vehicle data store and the search
// backends).
package resilience

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("rate limited")

// Limiter is a token-bucket rate limiter for outbound calls.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter allows ratePerSec calls per second with the given burst.
func NewLimiter(ratePerSec float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Allow reports whether a call may proceed right now.
func (l *Limiter) Allow() bool { return l.rl.Allow() }

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error { return l.rl.Wait(ctx) }

// Call runs f if a token is available, otherwise returns ErrRateLimited.
func (l *Limiter) Call(ctx context.Context, f func(context.Context) error) error {
	if !l.Allow() {
		return ErrRateLimited
	}
	return f(ctx)
}
