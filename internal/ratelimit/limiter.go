package ratelimit

import (
	"context"
	"sync"

	"github.com/patrickwarner/adreports/internal/observability"
)

// AccountLimiter keeps one token bucket per platform account.
//
// Buckets are created lazily on first use. Calls that have to wait are
// counted through the injected metrics registry.
type AccountLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	config  Config
	metrics observability.MetricsRegistry
}

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // Token bucket capacity (burst allowance)
	RefillRate int  // Tokens added per second (sustained rate)
	Enabled    bool // Whether rate limiting is active
}

// NewAccountLimiter creates a limiter with the given configuration.
func NewAccountLimiter(config Config, metrics observability.MetricsRegistry) *AccountLimiter {
	return &AccountLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

func bucketKey(platform, accountID string) string {
	return platform + ":" + accountID
}

func (l *AccountLimiter) bucket(key string) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()
	if exists {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, exists = l.buckets[key]
	if !exists {
		bucket = NewTokenBucket(l.config.Capacity, l.config.RefillRate)
		l.buckets[key] = bucket
	}
	return bucket
}

// Wait blocks until a call for the platform account may proceed. It returns
// ctx.Err() when the context ends first. Disabled limiters never block.
func (l *AccountLimiter) Wait(ctx context.Context, platform, accountID string) error {
	if !l.config.Enabled {
		return nil
	}
	waited, err := l.bucket(bucketKey(platform, accountID)).Wait(ctx)
	if waited {
		l.metrics.IncrementPlatformThrottled(platform)
	}
	return err
}
