package platforms

import (
	"context"
	"fmt"

	"github.com/patrickwarner/adreports/internal/models"
)

// Throttle blocks until a call for a platform account may proceed.
type Throttle interface {
	Wait(ctx context.Context, platform, accountID string) error
}

type throttledAdapter struct {
	Adapter
	throttle Throttle
}

// WithRateLimit wraps a so every FetchInsights call first waits on t for the
// account's turn.
func WithRateLimit(a Adapter, t Throttle) Adapter {
	if t == nil {
		return a
	}
	return &throttledAdapter{Adapter: a, throttle: t}
}

func (a *throttledAdapter) FetchInsights(ctx context.Context, account AccountRef, rng models.DateRange) ([]RawMetrics, error) {
	platform := a.Platform()
	if err := a.throttle.Wait(ctx, string(platform), account.AccountID); err != nil {
		return nil, &FetchError{Platform: platform, Message: fmt.Sprintf("rate limit wait: %v", err), Err: err}
	}
	return a.Adapter.FetchInsights(ctx, account, rng)
}
