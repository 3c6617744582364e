package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-03-01", "2024-03-10T23:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", r.FromString())
	assert.Equal(t, "2024-03-10", r.ToString())
	assert.Equal(t, 10, r.Days())
}

func TestParseDateRangeConvertsToUTC(t *testing.T) {
	r, err := ParseDateRange("2024-03-01T01:00:00+02:00", "2024-03-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", r.FromString())
	assert.Equal(t, "2024-03-01", r.ToString())
}

func TestParseDateRangeRejectsInverted(t *testing.T) {
	_, err := ParseDateRange("2024-03-10", "2024-03-01")
	assert.Error(t, err)

	_, err = ParseDateRange("yesterday", "2024-03-01")
	assert.Error(t, err)
}

func TestSingleDayRange(t *testing.T) {
	d := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	r, err := NewDateRange(d, d)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Days())
}

func TestDefaultReportName(t *testing.T) {
	r, _ := ParseDateRange("2024-03-01", "2024-03-31")
	assert.Equal(t, "Leads Report - 2024-03-01 to 2024-03-31", DefaultReportName(TemplateLeads, r))
}

func TestParseTemplateKind(t *testing.T) {
	k, err := ParseTemplateKind("sales")
	require.NoError(t, err)
	assert.Equal(t, TemplateSales, k)
	_, err = ParseTemplateKind("awareness")
	assert.Error(t, err)
}
