package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/insights"
	"github.com/patrickwarner/adreports/internal/notify"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/platforms"
	"github.com/patrickwarner/adreports/internal/reporting"
)

// NewFromConfig wires an Orchestrator with the platform adapters, the
// configured completion provider and a notifier. A nil publisher falls back
// to logging notifications.
func NewFromConfig(cfg config.Config, store ReportStore, publisher notify.Publisher, logger *zap.Logger, metrics observability.MetricsRegistry) (*Orchestrator, error) {
	completer, err := insights.NewCompleter(insights.ProviderConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("init completion provider: %w", err)
	}
	generator := insights.NewGenerator(completer, insights.OptionsFrom(cfg), logger, metrics)
	fetcher := reporting.NewFetcher(platforms.NewDefaultRegistry(cfg, logger, metrics), logger)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if publisher != nil {
		notifier = notify.NewRedisNotifier(publisher, cfg.NotifyChannel, cfg.AppURL, logger)
	}
	return NewOrchestrator(store, fetcher, generator, notifier, ConfigFrom(cfg), logger, metrics), nil
}
