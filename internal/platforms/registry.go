package platforms

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/ratelimit"
)

// Registry dispatches to the adapter registered for a platform tag.
type Registry struct {
	adapters map[models.Platform]Adapter
}

// NewRegistry registers the given adapters by their platform.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewDefaultRegistry wires the Meta and Google adapters from configuration.
// Both share one per-account throttle when PLATFORM_RATE_LIMIT_ENABLED is set.
func NewDefaultRegistry(cfg config.Config, logger *zap.Logger, metrics observability.MetricsRegistry) *Registry {
	var throttle Throttle
	if cfg.PlatformRateLimitEnabled {
		throttle = ratelimit.NewAccountLimiter(ratelimit.Config{
			Capacity:   cfg.PlatformRateBurst,
			RefillRate: cfg.PlatformRateRefill,
			Enabled:    true,
		}, metrics)
	}
	retry := DefaultRetryPolicy
	retry.MaxTries = uint(max(cfg.PlatformMaxRetries, 0)) + 1
	meta := NewMetaAdapter(cfg.MetaGraphURL, cfg.PlatformTimeout, logger, metrics).WithRetryPolicy(retry)
	google := NewGoogleAdapter(cfg.GoogleAdsURL, cfg.GoogleAdsDeveloperToken, cfg.PlatformTimeout, logger, metrics).WithRetryPolicy(retry)
	return NewRegistry(WithRateLimit(meta, throttle), WithRateLimit(google, throttle))
}

// Adapter returns the adapter for p.
func (r *Registry) Adapter(p models.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
	return a, nil
}
