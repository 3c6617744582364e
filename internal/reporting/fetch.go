package reporting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/platforms"
)

// AdapterSource resolves the adapter for a platform.
type AdapterSource interface {
	Adapter(p models.Platform) (platforms.Adapter, error)
}

// Fetcher pulls, normalizes and aggregates one account's campaign data.
type Fetcher struct {
	adapters AdapterSource
	logger   *zap.Logger
}

// NewFetcher creates a Fetcher dispatching through adapters.
func NewFetcher(adapters AdapterSource, logger *zap.Logger) *Fetcher {
	return &Fetcher{adapters: adapters, logger: logger}
}

// FetchCampaignData returns the aggregated campaign data for acc over rng.
// Adapter failures are returned as *platforms.FetchError and malformed rows
// as *NormalizationError, both wrapped.
func (f *Fetcher) FetchCampaignData(ctx context.Context, acc *models.AdAccount, rng models.DateRange) (*AggregatedCampaignData, error) {
	adapter, err := f.adapters.Adapter(acc.Platform)
	if err != nil {
		return nil, err
	}

	rows, err := adapter.FetchInsights(ctx, platforms.AccountRefFor(acc), rng)
	if err != nil {
		return nil, fmt.Errorf("fetch %s insights: %w", acc.Platform, err)
	}

	campaigns, err := Normalize(acc.Platform, rows)
	if err != nil {
		return nil, fmt.Errorf("normalize %s insights: %w", acc.Platform, err)
	}

	f.logger.Debug("campaign data fetched",
		zap.String("account_id", acc.ID),
		zap.String("platform", string(acc.Platform)),
		zap.String("period", rng.String()),
		zap.Int("campaigns", len(campaigns)))

	return NewAggregatedCampaignData(acc, rng, campaigns), nil
}
