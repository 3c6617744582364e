package reporting

import (
	"github.com/shopspring/decimal"
)

// Aggregate sums campaign rows into account totals. Ratios are recomputed
// from the sums, never averaged. An empty input yields all-zero totals.
//
// ROAS uses summed conversion value over spend when rows carry conversion
// value, otherwise the spend-weighted mean of per-campaign ROAS. It is zero
// when spend is zero and nil when no row carries revenue data.
func Aggregate(campaigns []CampaignMetrics) CampaignMetrics {
	var (
		t               CampaignMetrics
		spend           = decimal.Zero
		conversionValue = decimal.Zero
		weightedROAS    = decimal.Zero
		reach           int64
		hasValue        bool
		hasROAS         bool
		hasReach        bool
	)

	for _, c := range campaigns {
		t.Impressions += c.Impressions
		t.Clicks += c.Clicks
		t.Conversions += c.Conversions
		cs := decimal.NewFromFloat(c.Spend)
		spend = spend.Add(cs)

		if c.ConversionValue != nil {
			hasValue = true
			conversionValue = conversionValue.Add(decimal.NewFromFloat(*c.ConversionValue))
		}
		if c.ROAS != nil {
			hasROAS = true
			weightedROAS = weightedROAS.Add(decimal.NewFromFloat(*c.ROAS).Mul(cs))
		}
		if c.Reach != nil {
			hasReach = true
			reach += *c.Reach
		}
	}

	t.Spend, _ = spend.Float64()
	t.CTR = ctr(t.Clicks, t.Impressions)
	t.CPC = safeDiv(t.Spend, float64(t.Clicks))
	t.CPM = cpm(t.Spend, t.Impressions)
	t.CostPerConversion = safeDiv(t.Spend, t.Conversions)

	switch {
	case hasValue:
		v, _ := conversionValue.Float64()
		t.ConversionValue = &v
		r := roas(conversionValue, spend)
		t.ROAS = &r
	case hasROAS:
		r := roas(weightedROAS, spend)
		t.ROAS = &r
	}

	if hasReach {
		t.Reach = &reach
		f := safeDiv(float64(t.Impressions), float64(reach))
		t.Frequency = &f
	}
	return finite(t)
}

func roas(revenue, spend decimal.Decimal) float64 {
	if spend.IsZero() {
		return 0
	}
	f, _ := revenue.DivRound(spend, 8).Float64()
	return f
}
