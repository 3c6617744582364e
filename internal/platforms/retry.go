package platforms

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
)

// RetryPolicy bounds retries of transient platform failures: transport
// errors, HTTP 429 and 5xx, and Meta throttling codes.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used by adapters unless overridden.
var DefaultRetryPolicy = RetryPolicy{MaxTries: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 5 * time.Second}

// Graph API error codes for application and account level throttling.
var metaThrottleCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

func transientStatus(code int) bool {
	return code == 429 || code >= 500
}

// withRetry runs op until it succeeds, fails permanently or the policy is
// exhausted. The returned error is always a *FetchError.
func withRetry[T any](ctx context.Context, platform models.Platform, p RetryPolicy, logger *zap.Logger, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		var fe *FetchError
		if ctx.Err() != nil || !errors.As(err, &fe) || !fe.transient {
			return v, backoff.Permanent(err)
		}
		logger.Warn("transient platform error, retrying",
			zap.String("platform", string(platform)),
			zap.Int("attempt", attempt),
			zap.Int("status", fe.StatusCode),
			zap.String("error", fe.Message))
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(max(p.MaxTries, 1)))

	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Platform: platform, Message: err.Error(), Err: err}
		}
	}
	return res, err
}
