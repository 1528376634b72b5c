package connectors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests to an upstream source: a token bucket for
// proactive throttling plus a cooldown window set reactively when the
// upstream reports a rate-limit response.
type RateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	cooldownAt time.Time
}

func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &RateLimiter{bucket: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until it is safe to make the next request: first the proactive
// token bucket, then any reactive cooldown set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	cooldownAt := r.cooldownAt
	r.mu.Unlock()

	if time.Now().Before(cooldownAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(cooldownAt)):
		}
	}
	return nil
}

// RecordRateLimitError puts the limiter into cooldown for d.
func (r *RateLimiter) RecordRateLimitError(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(r.cooldownAt) {
		r.cooldownAt = until
	}
}
