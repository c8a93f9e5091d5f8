package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for client-side request pacing
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Interval is the steady-state spacing between requests, 0 when unpaced
	Interval() time.Duration
}

// TokenBucket paces requests to a steady per-minute rate with a small burst
type TokenBucket struct {
	limiter *rate.Limiter
	every   time.Duration
}

// NewPerMinute creates a limiter allowing requestsPerMinute requests with the given burst.
// A non-positive rate yields an unlimited limiter.
func NewPerMinute(requestsPerMinute, burst int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited()
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		every:   every,
	}
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Interval returns the steady-state spacing between requests
func (tb *TokenBucket) Interval() time.Duration {
	return tb.every
}

type unlimited struct{}

// Unlimited returns a limiter that never blocks
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (unlimited) Interval() time.Duration        { return 0 }
