package reporting

import (
	"github.com/patrickwarner/adreports/internal/models"
)

// PreviousPeriod returns the comparison period for rng: it ends the day
// before rng starts and reaches back by rng's inclusive day count, so
// 2024-03-01..2024-03-10 maps to 2024-02-19..2024-02-29. Plain day
// arithmetic on UTC dates is used, never calendar months.
func PreviousPeriod(rng models.DateRange) models.DateRange {
	to := rng.From.AddDate(0, 0, -1)
	return models.DateRange{
		From: to.AddDate(0, 0, -rng.Days()),
		To:   to,
	}
}

// PercentChange returns (current-previous)/previous*100, or nil when there
// is no baseline to compare against.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	v := (current - previous) / previous * 100
	return &v
}
