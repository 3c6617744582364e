package reporting

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/platforms"
)

var microsPerUnit = decimal.NewFromInt(1_000_000)

// NormalizationError reports a platform row that cannot be mapped to
// CampaignMetrics.
type NormalizationError struct {
	Platform   models.Platform
	CampaignID string
	Reason     string
}

func (e *NormalizationError) Error() string {
	if e.CampaignID == "" {
		return fmt.Sprintf("normalize %s metrics: %s", e.Platform, e.Reason)
	}
	return fmt.Sprintf("normalize %s campaign %s: %s", e.Platform, e.CampaignID, e.Reason)
}

// Normalize converts platform rows into CampaignMetrics, one output per input
// row in the same order.
func Normalize(platform models.Platform, rows []platforms.RawMetrics) ([]CampaignMetrics, error) {
	var convert func(platforms.RawMetrics) CampaignMetrics
	switch platform {
	case models.PlatformMeta:
		convert = normalizeMeta
	case models.PlatformGoogle:
		convert = normalizeGoogle
	default:
		return nil, &NormalizationError{Platform: platform, Reason: "unsupported platform"}
	}

	out := make([]CampaignMetrics, 0, len(rows))
	for _, row := range rows {
		if err := validateRaw(platform, row); err != nil {
			return nil, err
		}
		out = append(out, finite(convert(row)))
	}
	return out, nil
}

func validateRaw(platform models.Platform, r platforms.RawMetrics) error {
	fail := func(reason string) error {
		return &NormalizationError{Platform: platform, CampaignID: r.CampaignID, Reason: reason}
	}
	switch {
	case r.CampaignID == "":
		return fail("missing campaign id")
	case r.Impressions < 0 || r.Clicks < 0:
		return fail("negative counters")
	case r.Spend < 0 || r.CostMicros < 0:
		return fail("negative spend")
	}
	for _, v := range []float64{r.Spend, r.CTR, r.CPC, r.CPM, r.Conversions, r.AverageCPCMicros, r.AverageCPMMicros} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fail("non-finite metric")
		}
	}
	return nil
}

// normalizeMeta keeps Meta's values, which are already in currency units and
// CTR percent, falling back to derived ratios when a field is missing.
func normalizeMeta(r platforms.RawMetrics) CampaignMetrics {
	m := CampaignMetrics{
		CampaignID:      r.CampaignID,
		CampaignName:    r.CampaignName,
		Impressions:     r.Impressions,
		Clicks:          r.Clicks,
		Conversions:     r.Conversions,
		Spend:           r.Spend,
		ROAS:            r.ROAS,
		ConversionValue: r.ConversionValue,
		Reach:           r.Reach,
		Frequency:       r.Frequency,
	}

	m.CTR = r.CTR
	if m.CTR == 0 {
		m.CTR = ctr(m.Clicks, m.Impressions)
	}
	m.CPC = r.CPC
	if m.CPC == 0 {
		m.CPC = safeDiv(m.Spend, float64(m.Clicks))
	}
	m.CPM = r.CPM
	if m.CPM == 0 {
		m.CPM = cpm(m.Spend, m.Impressions)
	}
	if m.Impressions == 0 {
		m.CTR, m.CPM = 0, 0
	}
	if m.Clicks == 0 {
		m.CPC = 0
	}
	m.CostPerConversion = safeDiv(m.Spend, m.Conversions)
	return m
}

// normalizeGoogle converts micros to currency and the CTR ratio to a percentage.
func normalizeGoogle(r platforms.RawMetrics) CampaignMetrics {
	m := CampaignMetrics{
		CampaignID:      r.CampaignID,
		CampaignName:    r.CampaignName,
		Impressions:     r.Impressions,
		Clicks:          r.Clicks,
		Conversions:     r.Conversions,
		Spend:           fromMicros(decimal.NewFromInt(r.CostMicros)),
		CTR:             r.CTR * 100,
		CPC:             fromMicros(decimal.NewFromFloat(r.AverageCPCMicros)),
		CPM:             fromMicros(decimal.NewFromFloat(r.AverageCPMMicros)),
		ROAS:            r.ROAS,
		ConversionValue: r.ConversionValue,
		Reach:           r.Reach,
		Frequency:       r.Frequency,
	}
	if m.Impressions == 0 {
		m.CTR, m.CPM = 0, 0
	}
	if m.Clicks == 0 {
		m.CPC = 0
	}
	m.CostPerConversion = safeDiv(m.Spend, m.Conversions)
	return m
}

func fromMicros(v decimal.Decimal) float64 {
	f, _ := v.Div(microsPerUnit).Float64()
	return f
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func ctr(clicks, impressions int64) float64 {
	return safeDiv(float64(clicks), float64(impressions)) * 100
}

func cpm(spend float64, impressions int64) float64 {
	return safeDiv(spend, float64(impressions)) * 1000
}

// finite replaces NaN and Inf in derived fields with zero.
func finite(m CampaignMetrics) CampaignMetrics {
	fix := func(v *float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	fix(&m.Conversions)
	fix(&m.Spend)
	fix(&m.CTR)
	fix(&m.CPC)
	fix(&m.CPM)
	fix(&m.CostPerConversion)
	for _, p := range []*float64{m.ROAS, m.ConversionValue, m.Frequency} {
		if p != nil {
			fix(p)
		}
	}
	return m
}
