package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/pipeline"
)

type fakeStore struct {
	reports   map[string]*models.Report
	campaigns map[string][]models.CampaignData
	lastLimit int
}

func (f *fakeStore) GetReport(_ context.Context, id string) (*models.Report, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListReports(_ context.Context, userID string, limit int) ([]models.Report, error) {
	f.lastLimit = limit
	var out []models.Report
	for _, r := range f.reports {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCampaignData(_ context.Context, reportID string) ([]models.CampaignData, error) {
	return f.campaigns[reportID], nil
}

type fakeStarter struct {
	got pipeline.Request
	err error
}

func (f *fakeStarter) StartReportGeneration(_ context.Context, req pipeline.Request) (string, error) {
	f.got = req
	return "new-report", f.err
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func newTools() (*ReportTools, *fakeStore, *fakeStarter) {
	store := &fakeStore{
		reports: map[string]*models.Report{
			"r1": {
				ID: "r1", UserID: "u1", Name: "Leads", TemplateKind: models.TemplateLeads,
				DateFrom: day("2024-03-01"), DateTo: day("2024-03-10"), Status: models.ReportCompleted,
				Totals:   &models.PeriodTotals{DateFrom: day("2024-03-01"), DateTo: day("2024-03-10"), Spend: 150, Clicks: 20, Conversions: 4},
				Previous: &models.PeriodTotals{DateFrom: day("2024-02-19"), DateTo: day("2024-02-29"), Spend: 100, Clicks: 20},
			},
		},
		campaigns: map[string][]models.CampaignData{
			"r1": {{CampaignID: "c1", CampaignName: "Spring", Spend: 150, Clicks: 20}},
		},
	}
	starter := &fakeStarter{}
	return &ReportTools{store: store, starter: starter, logger: zap.NewNop()}, store, starter
}

func TestGetReportTool(t *testing.T) {
	tools, _, _ := newTools()

	_, out, err := tools.GetReport(context.Background(), nil, GetReportInput{UserID: "u1", ReportID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "2024-02-19", out.Previous.DateFrom)
	require.NotNil(t, out.SpendChangePct)
	assert.InDelta(t, 50.0, *out.SpendChangePct, 1e-9)
	assert.InDelta(t, 0.0, *out.ClicksChangePct, 1e-9)
	assert.Nil(t, out.ConversionsChangePct)

	_, _, err = tools.GetReport(context.Background(), nil, GetReportInput{UserID: "u2", ReportID: "r1"})
	assert.Error(t, err)
	_, _, err = tools.GetReport(context.Background(), nil, GetReportInput{UserID: "u1"})
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	tools, store, _ := newTools()

	_, reports, err := tools.ListReports(context.Background(), nil, ListReportsInput{UserID: "u1", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, reports.Reports, 1)
	assert.Equal(t, maxListLimit, store.lastLimit)

	_, campaigns, err := tools.ListReportCampaigns(context.Background(), nil, GetReportInput{UserID: "u1", ReportID: "r1"})
	require.NoError(t, err)
	require.Len(t, campaigns.Campaigns, 1)
	assert.Equal(t, "Spring", campaigns.Campaigns[0].Name)
}

func TestGenerateReportTool(t *testing.T) {
	tools, _, starter := newTools()

	_, out, err := tools.GenerateReport(context.Background(), nil, GenerateReportInput{
		UserID: "u1", AccountID: "acc", TemplateType: "reach", DateFrom: "2024-03-01", DateTo: "2024-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-report", out.ReportID)
	assert.Equal(t, "generating", out.Status)
	assert.Equal(t, models.TemplateReach, starter.got.TemplateKind)
	assert.Equal(t, 31, starter.got.DateRange.Days())

	_, _, err = tools.GenerateReport(context.Background(), nil, GenerateReportInput{
		UserID: "u1", AccountID: "acc", TemplateType: "reach", DateFrom: "2024-03-31", DateTo: "2024-03-01",
	})
	assert.Error(t, err)

	starter.err = pipeline.ErrReportLimitReached
	_, _, err = tools.GenerateReport(context.Background(), nil, GenerateReportInput{
		UserID: "u1", AccountID: "acc", TemplateType: "leads", DateFrom: "2024-03-01", DateTo: "2024-03-31",
	})
	assert.ErrorIs(t, err, pipeline.ErrReportLimitReached)
}
