package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests to the Telegram API.
type RateLimiter struct {
	limiter *rate.Limiter

	// pause requested by the server through FLOOD_WAIT
	floodWaitUntil time.Time
	mu             sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter returns a limiter with conservative settings.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(2.0, 1)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if until := r.FloodWaitUntil(); time.Now().Before(until) {
		timer := time.NewTimer(time.Until(until))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetFloodWait pauses every request for d. A shorter pause never cuts an
// active one short.
func (r *RateLimiter) SetFloodWait(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.floodWaitUntil) {
		r.floodWaitUntil = until
	}
}

// FloodWaitUntil returns the end of the current pause, zero if none was set.
func (r *RateLimiter) FloodWaitUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.floodWaitUntil
}
