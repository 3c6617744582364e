package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/reporting"
)

func f64(v float64) *float64 { return &v }

func sampleData(t *testing.T) *reporting.AggregatedCampaignData {
	t.Helper()
	rng, err := models.ParseDateRange("2024-03-01", "2024-03-10")
	require.NoError(t, err)
	acc := &models.AdAccount{Platform: models.PlatformMeta, AccountName: "Acme Store", Currency: "USD"}
	return reporting.NewAggregatedCampaignData(acc, rng, []reporting.CampaignMetrics{
		{CampaignName: "Alpha", Spend: 50, Impressions: 12000, Clicks: 100, CTR: 0.83, Conversions: 4, ROAS: f64(3)},
		{CampaignName: "Bravo", Spend: 900, Impressions: 3000, Clicks: 60, CTR: 2, Conversions: 10, ROAS: f64(2)},
		{CampaignName: "Charlie", Spend: 300, Impressions: 500, Clicks: 5, CTR: 1, Conversions: 1},
		{CampaignName: "Delta", Spend: 10, Impressions: 100, Clicks: 1, CTR: 1, Conversions: 0},
	})
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	data := sampleData(t)
	a := BuildMessages(data, models.TemplateSales)
	b := BuildMessages(data, models.TemplateSales)
	assert.Equal(t, a, b)
	require.Len(t, a, 2)
	assert.Equal(t, RoleSystem, a[0].Role)
	assert.Equal(t, RoleUser, a[1].Role)
}

func TestBuildPromptContents(t *testing.T) {
	prompt := buildPrompt(sampleData(t), models.TemplateLeads)

	assert.Contains(t, prompt, "Meta Ads")
	assert.Contains(t, prompt, "Account: Acme Store")
	assert.Contains(t, prompt, "Period: 2024-03-01 to 2024-03-10 (10 days)")
	assert.Contains(t, prompt, "Active campaigns: 4")
	assert.Contains(t, prompt, "- Spend: 1,260.00 USD")
	assert.Contains(t, prompt, "- Impressions: 15,600")
	assert.Contains(t, prompt, "- Cost per lead: 84.00 USD")
	assert.NotContains(t, prompt, "ROAS")

	top := prompt[strings.Index(prompt, "TOP CAMPAIGNS BY SPEND"):]
	assert.Less(t, strings.Index(top, "Bravo"), strings.Index(top, "Charlie"))
	assert.Less(t, strings.Index(top, "Charlie"), strings.Index(top, "Alpha"))
	assert.NotContains(t, top, "Delta")
}

func TestBuildPromptTemplateExtras(t *testing.T) {
	data := sampleData(t)

	sales := buildPrompt(data, models.TemplateSales)
	assert.Contains(t, sales, "- ROAS:")
	assert.Contains(t, sales, "Estimated revenue")

	reach := buildPrompt(data, models.TemplateReach)
	assert.Contains(t, reach, "- Reach: not reported")
	assert.NotContains(t, reach, "Cost per lead")
}
