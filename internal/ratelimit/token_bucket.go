// Package ratelimit throttles outbound ad platform calls with token buckets.
//
// The token bucket algorithm allows bursts up to the bucket capacity while
// holding a sustained rate over time. Ad platform APIs enforce per-account
// quotas, so callers wait for a token instead of being rejected.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrBurstExceeded is returned when a wait can never be satisfied.
var ErrBurstExceeded = errors.New("rate limit burst exceeded")

// TokenBucket is a thread-safe token bucket.
//
// Example usage:
//
//	bucket := NewTokenBucket(5, 1) // 5 burst capacity, 1 token/second
//	if _, err := bucket.Wait(ctx); err != nil {
//	    return err // ctx expired while throttled
//	}
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewTokenBucket creates a full bucket with the specified capacity and refill
// rate in tokens per second. Non-positive values are raised to 1.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(max(refillRate, 1)), max(capacity, 1)),
		now:     time.Now,
	}
}

// Wait blocks until a token is available or ctx is done. It reports whether
// the call had to wait. A cancelled wait returns its token to the bucket.
func (tb *TokenBucket) Wait(ctx context.Context) (bool, error) {
	now := tb.now()
	r := tb.limiter.ReserveN(now, 1)
	if !r.OK() {
		return true, ErrBurstExceeded
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return false, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.CancelAt(tb.now())
		return true, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
