package reporting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/platforms"
)

type stubAdapter struct {
	platform models.Platform
	rows     []platforms.RawMetrics
	err      error
	gotRef   platforms.AccountRef
}

func (s *stubAdapter) Platform() models.Platform { return s.platform }

func (s *stubAdapter) FetchInsights(ctx context.Context, ref platforms.AccountRef, rng models.DateRange) ([]platforms.RawMetrics, error) {
	s.gotRef = ref
	return s.rows, s.err
}

func TestFetcherAggregates(t *testing.T) {
	a := &stubAdapter{platform: models.PlatformMeta, rows: []platforms.RawMetrics{
		{CampaignID: "1", Impressions: 100, Clicks: 10, Spend: 5, CTR: 10},
	}}
	f := NewFetcher(platforms.NewRegistry(a), zap.NewNop())
	acc := &models.AdAccount{ID: "acc", Platform: models.PlatformMeta, PlatformAccountID: "act_1", AccessToken: "tok", Currency: "PLN"}
	rng, _ := models.ParseDateRange("2024-01-01", "2024-01-31")

	data, err := f.FetchCampaignData(context.Background(), acc, rng)
	require.NoError(t, err)
	assert.Equal(t, "act_1", a.gotRef.AccountID)
	assert.Equal(t, "tok", a.gotRef.AccessToken)
	assert.Len(t, data.Campaigns, 1)
	assert.Equal(t, int64(100), data.Totals.Impressions)
	assert.Equal(t, "PLN", data.Currency)
	assert.Equal(t, rng, data.DateRange())
}

func TestFetcherPropagatesFetchError(t *testing.T) {
	a := &stubAdapter{platform: models.PlatformGoogle, err: &platforms.FetchError{Platform: models.PlatformGoogle, StatusCode: 401, Message: "expired"}}
	f := NewFetcher(platforms.NewRegistry(a), zap.NewNop())
	acc := &models.AdAccount{Platform: models.PlatformGoogle}
	rng, _ := models.ParseDateRange("2024-01-01", "2024-01-31")

	_, err := f.FetchCampaignData(context.Background(), acc, rng)
	var fe *platforms.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 401, fe.StatusCode)
}
