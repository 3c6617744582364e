package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adreports/internal/models"
)

func f64(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func sampleRows(n int) []models.CampaignData {
	rows := make([]models.CampaignData, 0, n)
	for i := 0; i < n; i++ {
		reach := int64(1000 + i)
		rows = append(rows, models.CampaignData{
			Platform:     models.PlatformMeta,
			CampaignID:   fmt.Sprintf("c%d", i),
			CampaignName: fmt.Sprintf("Campaign, number %d", i),
			DateFrom:     day("2024-03-01"),
			DateTo:       day("2024-03-31"),
			Spend:        12.5,
			Impressions:  1000,
			Clicks:       20,
			Conversions:  2,
			CTR:          2,
			CPC:          0.625,
			CPM:          12.5,
			Reach:        &reach,
		})
	}
	return rows
}

func TestWriteCampaignsCSV(t *testing.T) {
	rows := sampleRows(2)
	rows[1].ROAS = f64(3.5)
	rows[1].Revenue = 43.75

	var buf bytes.Buffer
	require.NoError(t, WriteCampaignsCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "Campaign, number 0", records[1][2])
	assert.Equal(t, "2024-03-01", records[1][3])
	assert.Equal(t, "12.5", records[1][5])
	assert.Equal(t, "", records[1][14])
	assert.Equal(t, "3.5", records[2][14])
	assert.Equal(t, "1001", records[2][15])
	assert.Equal(t, "", records[2][16])
}

func completedReport() *models.Report {
	return &models.Report{
		ID:           "r1",
		Name:         "Sales Report - 2024-03-01 to 2024-03-31",
		TemplateKind: models.TemplateSales,
		DateFrom:     day("2024-03-01"),
		DateTo:       day("2024-03-31"),
		Status:       models.ReportCompleted,
		Totals: &models.PeriodTotals{
			DateFrom: day("2024-03-01"), DateTo: day("2024-03-31"),
			Spend: 1250, Impressions: 100000, Clicks: 2000, Conversions: 40,
			CTR: 2, CPC: 0.625, CPM: 12.5, ROAS: f64(2.4),
		},
		Previous: &models.PeriodTotals{
			DateFrom: day("2024-01-30"), DateTo: day("2024-02-29"),
			Spend: 1000, Impressions: 90000, Clicks: 1500, Conversions: 50,
			CTR: 1.67, CPC: 0.67, CPM: 11.1,
		},
		AIDescription:     "Spend grew while conversions fell.",
		AIRecommendations: []string{"Cut the weakest ad sets", "Test new creatives"},
	}
}

func TestWriteReportPDF(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReportPDF(&buf, PDFInput{
		Report:    completedReport(),
		Account:   &models.AdAccount{Platform: models.PlatformMeta, AccountName: "Shop", Currency: "usd"},
		Campaigns: sampleRows(120),
		Now:       time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestWriteReportPDFWithoutComparison(t *testing.T) {
	r := completedReport()
	r.Previous = nil
	r.AIRecommendations = nil
	var buf bytes.Buffer
	require.NoError(t, WriteReportPDF(&buf, PDFInput{Report: r}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteReportPDFRejectsUnfinishedReport(t *testing.T) {
	r := completedReport()
	r.Status = models.ReportGenerating
	var buf bytes.Buffer
	assert.Error(t, WriteReportPDF(&buf, PDFInput{Report: r}))
	assert.Zero(t, buf.Len())
}

func TestMetricValue(t *testing.T) {
	totals := &models.PeriodTotals{Spend: 1234.5, Impressions: 1234567}
	_, text := metricValue("Spend", totals, "pln")
	assert.Equal(t, "1,234.50 PLN", text)
	_, text = metricValue("Impressions", totals, "")
	assert.Equal(t, "1,234,567", text)
	v, text := metricValue("ROAS", totals, "")
	assert.Zero(t, v)
	assert.Equal(t, "-", text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
