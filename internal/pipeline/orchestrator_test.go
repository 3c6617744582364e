package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/insights"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/notify"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/reporting"
)

type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.AdAccount
	reports   map[string]*models.Report
	campaigns []models.CampaignData
	count     int
	insertErr error
	nextID    int
}

func newFakeStore(accounts ...*models.AdAccount) *fakeStore {
	s := &fakeStore{accounts: map[string]*models.AdAccount{}, reports: map[string]*models.Report{}}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeStore) GetAdAccount(_ context.Context, id string) (*models.AdAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) CreateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = fmt.Sprintf("report-%d", s.nextID)
	r.Status = models.ReportGenerating
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *fakeStore) CompleteReport(_ context.Context, id string, res models.ReportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.Status != models.ReportGenerating {
		return db.ErrNotFound
	}
	totals := res.Totals
	r.Status = models.ReportCompleted
	r.Totals = &totals
	r.Previous = res.Previous
	r.AIDescription = res.Description
	r.AIRecommendations = res.Recommendations
	return nil
}

func (s *fakeStore) FailReport(_ context.Context, id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.Status != models.ReportGenerating {
		return db.ErrNotFound
	}
	r.Status = models.ReportFailed
	r.ErrorMessage = msg
	return nil
}

func (s *fakeStore) InsertCampaignData(_ context.Context, rows []models.CampaignData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.campaigns = append(s.campaigns, rows...)
	return nil
}

func (s *fakeStore) CountReportsSince(_ context.Context, _ string, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

func (s *fakeStore) report(id string) models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.reports[id]
}

// fakeFetcher answers by the period start date.
type fakeFetcher struct {
	mu     sync.Mutex
	data   map[string][]reporting.CampaignMetrics
	errs   map[string]error
	panics map[string]bool
	ranges []models.DateRange
}

func (f *fakeFetcher) FetchCampaignData(_ context.Context, acc *models.AdAccount, rng models.DateRange) (*reporting.AggregatedCampaignData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rng)
	if f.panics[rng.FromString()] {
		panic("adapter exploded for " + rng.FromString())
	}
	if err := f.errs[rng.FromString()]; err != nil {
		return nil, err
	}
	return reporting.NewAggregatedCampaignData(acc, rng, f.data[rng.FromString()]), nil
}

type fakeGenerator struct {
	result  *insights.Insights
	err     error
	panics  bool
	release chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, _ *reporting.AggregatedCampaignData, _ models.TemplateKind) (*insights.Insights, error) {
	if g.release != nil {
		<-g.release
	}
	if g.panics {
		panic("boom")
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func f64(v float64) *float64 { return &v }

func testAccount() *models.AdAccount {
	return &models.AdAccount{
		ID:                "acc-1",
		UserID:            "user-1",
		Platform:          models.PlatformMeta,
		PlatformAccountID: "123",
		AccountName:       "Shop",
		Currency:          "USD",
		Status:            models.AccountActive,
	}
}

func march() models.DateRange {
	rng, _ := models.ParseDateRange("2024-03-01", "2024-03-10")
	return rng
}

type harness struct {
	store    *fakeStore
	fetcher  *fakeFetcher
	gen      *fakeGenerator
	notifier *recordingNotifier
	metrics  *observability.MockMetricsRegistry
	orch     *Orchestrator
}

func newHarness(cfg Config) *harness {
	h := &harness{
		store: newFakeStore(testAccount()),
		fetcher: &fakeFetcher{
			data: map[string][]reporting.CampaignMetrics{
				"2024-03-01": {
					{CampaignID: "c1", CampaignName: "Spring", Impressions: 10000, Clicks: 200, Conversions: 10, Spend: 100, ROAS: f64(3)},
					{CampaignID: "c2", CampaignName: "Brand", Impressions: 5000, Clicks: 50, Conversions: 0, Spend: 50},
				},
				"2024-02-19": {
					{CampaignID: "c1", CampaignName: "Spring", Impressions: 8000, Clicks: 100, Conversions: 4, Spend: 80},
				},
			},
			errs:   map[string]error{},
			panics: map[string]bool{},
		},
		gen:      &fakeGenerator{result: &insights.Insights{Description: "Solid month.", Recommendations: []string{"Scale Spring"}}},
		notifier: &recordingNotifier{},
		metrics:  observability.NewMockMetricsRegistry(),
	}
	h.orch = NewOrchestrator(h.store, h.fetcher, h.gen, h.notifier, cfg, zap.NewNop(), h.metrics)
	return h
}

func (h *harness) start(t *testing.T) string {
	t.Helper()
	id, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateSales,
		DateRange:    march(),
	})
	require.NoError(t, err)
	return id
}

func TestReportCompletesWithComparison(t *testing.T) {
	h := newHarness(Config{Workers: 2})
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	require.Equal(t, models.ReportCompleted, r.Status)
	assert.Equal(t, "Sales Report - 2024-03-01 to 2024-03-10", r.Name)
	require.NotNil(t, r.Totals)
	assert.InDelta(t, 150.0, r.Totals.Spend, 1e-9)
	assert.Equal(t, int64(15000), r.Totals.Impressions)
	assert.Equal(t, "Solid month.", r.AIDescription)
	assert.Equal(t, []string{"Scale Spring"}, r.AIRecommendations)

	require.NotNil(t, r.Previous)
	assert.Equal(t, "2024-02-19", r.Previous.DateFrom.Format(models.DateLayout))
	assert.Equal(t, "2024-02-29", r.Previous.DateTo.Format(models.DateLayout))
	assert.InDelta(t, 80.0, r.Previous.Spend, 1e-9)

	require.Len(t, h.store.campaigns, 2)
	assert.InDelta(t, 300.0, h.store.campaigns[0].Revenue, 1e-9)
	assert.Zero(t, h.store.campaigns[1].Revenue)
	assert.Equal(t, id, h.store.campaigns[0].ReportID)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, models.ReportCompleted, h.notifier.sent[0].Status)
	assert.Equal(t, 1, h.metrics.ReportCount("completed"))
	assert.Equal(t, 1, h.metrics.FetchCount("meta", "current", "success"))
	assert.Equal(t, 1, h.metrics.FetchCount("meta", "previous", "success"))
}

func TestComparisonFailureStillCompletes(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.fetcher.errs["2024-02-19"] = errors.New("rate limited")
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, models.ReportCompleted, r.Status)
	assert.NotNil(t, r.Totals)
	assert.Nil(t, r.Previous)
	assert.Equal(t, 1, h.metrics.FetchCount("meta", "previous", "failure"))
}

func TestComparisonPanicStillCompletes(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.fetcher.panics["2024-02-19"] = true
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, models.ReportCompleted, r.Status)
	require.NotNil(t, r.Totals)
	assert.InDelta(t, 150.0, r.Totals.Spend, 1e-9)
	assert.Nil(t, r.Previous)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, models.ReportCompleted, h.notifier.sent[0].Status)
}

func TestStartTruncatesDateRangeToUTCDates(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	warsaw := time.FixedZone("CET", 3600)
	id, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateSales,
		DateRange: models.DateRange{
			From: time.Date(2024, 3, 1, 12, 30, 0, 0, warsaw),
			To:   time.Date(2024, 3, 10, 18, 0, 0, 0, warsaw),
		},
	})
	require.NoError(t, err)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.DateFrom)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), r.DateTo)
	assert.Equal(t, "Sales Report - 2024-03-01 to 2024-03-10", r.Name)
	assert.Equal(t, models.ReportCompleted, r.Status)
	require.NotNil(t, r.Previous)
	assert.Equal(t, "2024-02-19", r.Previous.DateFrom.Format(models.DateLayout))
}

func TestStartAfterShutdownIsRejected(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	require.NoError(t, h.orch.Shutdown(context.Background()))

	_, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateSales,
		DateRange:    march(),
	})
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.Empty(t, h.store.reports)
}

func TestConcurrentStartAndShutdown(t *testing.T) {
	h := newHarness(Config{Workers: 4})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.StartReportGeneration(context.Background(), Request{
				UserID:       "user-1",
				AccountID:    "acc-1",
				TemplateKind: models.TemplateSales,
				DateRange:    march(),
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrShuttingDown)
			}
		}()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Shutdown(ctx))
	wg.Wait()
	h.orch.Wait()

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, r := range h.store.reports {
		assert.True(t, r.Status.Terminal(), "report %s left %s", r.ID, r.Status)
	}
}

func TestCurrentFetchFailureFailsReport(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.fetcher.errs["2024-03-01"] = errors.New("fetch meta insights: invalid token")
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, models.ReportFailed, r.Status)
	assert.Contains(t, r.ErrorMessage, "invalid token")
	assert.Nil(t, r.Totals)
	assert.Empty(t, h.store.campaigns)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, models.ReportFailed, h.notifier.sent[0].Status)
	assert.Contains(t, h.notifier.sent[0].ErrorMessage, "invalid token")
	assert.Equal(t, 1, h.metrics.ReportCount("failed"))
}

func TestInsightFailureFailsReport(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.gen.err = &insights.GenerationError{Provider: "openai", StatusCode: 429, Message: "rate limit"}
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, models.ReportFailed, r.Status)
	assert.Contains(t, r.ErrorMessage, "generate insights")
	// campaign rows are written before insights run
	assert.Len(t, h.store.campaigns, 2)
}

func TestCampaignPersistFailureDoesNotFailReport(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.store.insertErr = errors.New("disk full")
	id := h.start(t)
	h.orch.Wait()

	assert.Equal(t, models.ReportCompleted, h.store.report(id).Status)
	assert.Equal(t, 1, h.metrics.PersistErrors())
}

func TestPanicMarksReportFailed(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.gen.panics = true
	id := h.start(t)
	h.orch.Wait()

	r := h.store.report(id)
	assert.Equal(t, models.ReportFailed, r.Status)
	assert.Contains(t, r.ErrorMessage, "internal error")
}

func TestStartReturnsBeforeGenerationFinishes(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.gen.release = make(chan struct{})
	id := h.start(t)

	assert.Equal(t, models.ReportGenerating, h.store.report(id).Status)
	close(h.gen.release)
	h.orch.Wait()
	assert.Equal(t, models.ReportCompleted, h.store.report(id).Status)
}

func TestStartRejectsForeignAccount(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	_, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "intruder",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateLeads,
		DateRange:    march(),
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "missing",
		TemplateKind: models.TemplateLeads,
		DateRange:    march(),
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, h.store.reports)
}

func TestStartRejectsInvalidTemplate(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	_, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: "branding",
		DateRange:    march(),
	})
	assert.Error(t, err)
	assert.Empty(t, h.store.reports)
}

func TestStartRejectsInactiveAccount(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.store.accounts["acc-1"].Status = models.AccountDisabled
	_, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateLeads,
		DateRange:    march(),
	})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestMonthlyLimit(t *testing.T) {
	h := newHarness(Config{Workers: 1, MonthlyReportLimit: 3})
	h.store.count = 3
	_, err := h.orch.StartReportGeneration(context.Background(), Request{
		UserID:       "user-1",
		AccountID:    "acc-1",
		TemplateKind: models.TemplateLeads,
		DateRange:    march(),
	})
	assert.ErrorIs(t, err, ErrReportLimitReached)

	h.store.count = 2
	h.start(t)
	h.orch.Wait()
}

func TestCampaignRowsRevenue(t *testing.T) {
	acc := testAccount()
	data := reporting.NewAggregatedCampaignData(acc, march(), []reporting.CampaignMetrics{
		{CampaignID: "a", Spend: 20, ROAS: f64(2.5)},
		{CampaignID: "b", Spend: 10},
	})
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	rows := CampaignRows(&models.Report{ID: "r1"}, acc, data, now)
	require.Len(t, rows, 2)
	assert.InDelta(t, 50.0, rows[0].Revenue, 1e-9)
	assert.Zero(t, rows[1].Revenue)
	assert.Equal(t, models.PlatformMeta, rows[0].Platform)
	assert.Equal(t, now, rows[1].FetchedAt)
}

func TestShutdownWaitsForPipelines(t *testing.T) {
	h := newHarness(Config{Workers: 1})
	h.gen.release = make(chan struct{})
	id := h.start(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(h.gen.release)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Shutdown(ctx))
	assert.Equal(t, models.ReportCompleted, h.store.report(id).Status)
}
