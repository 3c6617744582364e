// Package export renders finished reports as CSV and PDF documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/patrickwarner/adreports/internal/models"
)

var csvHeader = []string{
	"platform", "campaign_id", "campaign_name", "date_from", "date_to",
	"spend", "impressions", "clicks", "conversions", "revenue",
	"ctr", "cpc", "cpm", "cost_per_conversion", "roas", "reach", "frequency",
}

// WriteCampaignsCSV writes one row per campaign. Missing optional values are
// left empty.
func WriteCampaignsCSV(w io.Writer, rows []models.CampaignData) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range rows {
		record := []string{
			string(c.Platform),
			c.CampaignID,
			c.CampaignName,
			c.DateFrom.Format(models.DateLayout),
			c.DateTo.Format(models.DateLayout),
			formatFloat(c.Spend),
			strconv.FormatInt(c.Impressions, 10),
			strconv.FormatInt(c.Clicks, 10),
			formatFloat(c.Conversions),
			formatFloat(c.Revenue),
			formatFloat(c.CTR),
			formatFloat(c.CPC),
			formatFloat(c.CPM),
			formatFloat(c.CostPerConversion),
			optionalFloat(c.ROAS),
			optionalInt(c.Reach),
			optionalFloat(c.Frequency),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
