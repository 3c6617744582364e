// Package reporting normalizes platform metrics into one schema, aggregates
// campaign rows into account totals and derives comparison periods.
package reporting

import (
	"time"

	"github.com/patrickwarner/adreports/internal/models"
)

// CampaignMetrics is the platform-independent performance record for one
// campaign, or for an account when used as totals. Money is in the account
// currency. CTR is a percentage (0-100). Optional fields are nil when the
// platform does not report them.
type CampaignMetrics struct {
	CampaignID        string   `json:"campaign_id"`
	CampaignName      string   `json:"campaign_name"`
	Impressions       int64    `json:"impressions"`
	Clicks            int64    `json:"clicks"`
	Conversions       float64  `json:"conversions"`
	Spend             float64  `json:"spend"`
	CTR               float64  `json:"ctr"`                 // clicks/impressions * 100
	CPC               float64  `json:"cpc"`                 // spend/clicks
	CPM               float64  `json:"cpm"`                 // spend/impressions * 1000
	CostPerConversion float64  `json:"cost_per_conversion"` // spend/conversions
	ROAS              *float64 `json:"roas,omitempty"`
	ConversionValue   *float64 `json:"conversion_value,omitempty"`
	Reach             *int64   `json:"reach,omitempty"`
	Frequency         *float64 `json:"frequency,omitempty"`
}

// AggregatedCampaignData is a normalized campaign set for one account and
// period together with its totals.
type AggregatedCampaignData struct {
	Platform    models.Platform   `json:"platform"`
	AccountName string            `json:"account_name"`
	Currency    string            `json:"currency"`
	DateFrom    time.Time         `json:"date_from"`
	DateTo      time.Time         `json:"date_to"`
	Campaigns   []CampaignMetrics `json:"campaigns"`
	Totals      CampaignMetrics   `json:"totals"`
}

// NewAggregatedCampaignData computes totals for campaigns.
func NewAggregatedCampaignData(acc *models.AdAccount, rng models.DateRange, campaigns []CampaignMetrics) *AggregatedCampaignData {
	return &AggregatedCampaignData{
		Platform:    acc.Platform,
		AccountName: acc.AccountName,
		Currency:    acc.Currency,
		DateFrom:    rng.From,
		DateTo:      rng.To,
		Campaigns:   campaigns,
		Totals:      Aggregate(campaigns),
	}
}

// DateRange returns the period the data covers.
func (a *AggregatedCampaignData) DateRange() models.DateRange {
	return models.DateRange{From: a.DateFrom, To: a.DateTo}
}

// PeriodTotals converts the totals into the persisted snapshot form.
func (a *AggregatedCampaignData) PeriodTotals() *models.PeriodTotals {
	t := a.Totals
	return &models.PeriodTotals{
		DateFrom:    a.DateFrom,
		DateTo:      a.DateTo,
		Spend:       t.Spend,
		Impressions: t.Impressions,
		Clicks:      t.Clicks,
		Conversions: t.Conversions,
		CTR:         t.CTR,
		CPC:         t.CPC,
		CPM:         t.CPM,
		ROAS:        t.ROAS,
	}
}
