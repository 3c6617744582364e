// Package pipeline runs report generation in the background: it fetches the
// current and comparison periods, persists campaign rows, generates insights
// and moves the report to a terminal state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/insights"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/notify"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/reporting"
)

var (
	// ErrAccountNotFound is returned when the account does not exist or
	// belongs to another user.
	ErrAccountNotFound = errors.New("ad account not found")
	// ErrAccountInactive is returned for disabled accounts.
	ErrAccountInactive = errors.New("ad account is not active")
	// ErrReportLimitReached is returned when the user used up the monthly quota.
	ErrReportLimitReached = errors.New("monthly report limit reached")
	// ErrShuttingDown is returned for starts after Shutdown and recorded on
	// reports abandoned during shutdown.
	ErrShuttingDown = errors.New("report generation interrupted by shutdown")
)

const writeTimeout = 10 * time.Second

// ReportStore persists accounts, reports and campaign rows.
type ReportStore interface {
	GetAdAccount(ctx context.Context, id string) (*models.AdAccount, error)
	CreateReport(ctx context.Context, r *models.Report) error
	CompleteReport(ctx context.Context, id string, res models.ReportResult) error
	FailReport(ctx context.Context, id, msg string) error
	InsertCampaignData(ctx context.Context, rows []models.CampaignData) error
	CountReportsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// CampaignFetcher returns aggregated campaign data for an account and period.
type CampaignFetcher interface {
	FetchCampaignData(ctx context.Context, acc *models.AdAccount, rng models.DateRange) (*reporting.AggregatedCampaignData, error)
}

// InsightGenerator produces the narrative for aggregated data.
type InsightGenerator interface {
	Generate(ctx context.Context, data *reporting.AggregatedCampaignData, kind models.TemplateKind) (*insights.Insights, error)
}

// Config bounds pipeline concurrency and per-call durations.
type Config struct {
	Workers            int
	FetchTimeout       time.Duration
	InsightTimeout     time.Duration
	MonthlyReportLimit int
}

// ConfigFrom extracts pipeline settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Workers:            cfg.PipelineWorkers,
		FetchTimeout:       cfg.PlatformTimeout,
		InsightTimeout:     cfg.AITimeout,
		MonthlyReportLimit: cfg.MonthlyReportLimit,
	}
}

// Request asks for a new report.
type Request struct {
	UserID       string
	AccountID    string
	Name         string
	TemplateKind models.TemplateKind
	DateRange    models.DateRange
}

// Orchestrator starts and runs report pipelines.
type Orchestrator struct {
	store     ReportStore
	fetcher   CampaignFetcher
	generator InsightGenerator
	notifier  notify.Notifier
	cfg       Config
	logger    *zap.Logger
	metrics   observability.MetricsRegistry
	tracer    trace.Tracer

	sem chan struct{}
	wg  sync.WaitGroup
	// mu orders wg.Add against Shutdown's wg.Wait.
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(store ReportStore, fetcher CampaignFetcher, generator InsightGenerator, notifier notify.Notifier, cfg Config, logger *zap.Logger, metrics observability.MetricsRegistry) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		generator: generator,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    observability.Tracer("pipeline"),
		sem:       make(chan struct{}, cfg.Workers),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// StartReportGeneration validates req, creates the report in generating
// state and returns its id. Generation continues in the background and is
// not tied to ctx.
func (o *Orchestrator) StartReportGeneration(ctx context.Context, req Request) (string, error) {
	if _, err := models.ParseTemplateKind(string(req.TemplateKind)); err != nil {
		return "", err
	}
	rng, err := models.NewDateRange(req.DateRange.From, req.DateRange.To)
	if err != nil {
		return "", err
	}
	req.DateRange = rng

	if !o.begin() {
		return "", ErrShuttingDown
	}
	started := false
	defer func() {
		if !started {
			o.wg.Done()
		}
	}()

	acc, err := o.store.GetAdAccount(ctx, req.AccountID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && acc.UserID != req.UserID) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load ad account: %w", err)
	}
	if acc.Status != "" && acc.Status != models.AccountActive {
		return "", ErrAccountInactive
	}

	if err := o.checkQuota(ctx, req.UserID); err != nil {
		return "", err
	}

	name := req.Name
	if name == "" {
		name = models.DefaultReportName(req.TemplateKind, req.DateRange)
	}
	report := &models.Report{
		UserID:       req.UserID,
		AdAccountID:  acc.ID,
		Name:         name,
		TemplateKind: req.TemplateKind,
		DateFrom:     req.DateRange.From,
		DateTo:       req.DateRange.To,
	}
	if err := o.store.CreateReport(ctx, report); err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	o.logger.Info("report generation started",
		zap.String("report_id", report.ID),
		zap.String("account_id", acc.ID),
		zap.String("platform", string(acc.Platform)),
		zap.String("template", string(report.TemplateKind)),
		zap.String("period", req.DateRange.String()))

	started = true
	go o.run(report, acc)
	return report.ID, nil
}

// begin registers a pipeline unless Shutdown has been called.
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.wg.Add(1)
	return true
}

func (o *Orchestrator) checkQuota(ctx context.Context, userID string) error {
	if o.cfg.MonthlyReportLimit <= 0 {
		return nil
	}
	now := o.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	n, err := o.store.CountReportsSince(ctx, userID, monthStart)
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	if n >= o.cfg.MonthlyReportLimit {
		return ErrReportLimitReached
	}
	return nil
}

// Wait blocks until all started pipelines have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown waits for running pipelines until ctx expires, then cancels them.
// Cancelled reports are marked failed.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

func (o *Orchestrator) run(report *models.Report, acc *models.AdAccount) {
	defer o.wg.Done()
	start := time.Now()
	logger := o.logger.With(
		zap.String("report_id", report.ID),
		zap.String("account_id", acc.ID),
		zap.String("platform", string(acc.Platform)))

	ctx, span := o.tracer.Start(o.ctx, "report.generate", trace.WithAttributes(
		attribute.String("report.id", report.ID),
		attribute.String("report.platform", string(acc.Platform)),
		attribute.String("report.template", string(report.TemplateKind)),
	))
	defer span.End()

	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		o.fail(ctx, report, ErrShuttingDown, start, logger)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("report pipeline panicked", zap.Any("panic", r), zap.Stack("stack"))
			span.SetStatus(codes.Error, "panic")
			o.fail(ctx, report, fmt.Errorf("internal error: %v", r), start, logger)
		}
	}()

	if err := o.generate(ctx, report, acc, logger); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, report, err, start, logger)
		return
	}

	o.metrics.IncrementReports(string(models.ReportCompleted))
	o.metrics.RecordPipelineDuration(string(models.ReportCompleted), time.Since(start))
	logger.Info("report generation completed", zap.Duration("duration", time.Since(start)))
	o.notify(ctx, report, models.ReportCompleted, "", logger)
}

// generate runs the fetch, persist and insight steps. Only the returned
// error fails the report.
func (o *Orchestrator) generate(ctx context.Context, report *models.Report, acc *models.AdAccount, logger *zap.Logger) error {
	rng := report.DateRange()
	prevRng := reporting.PreviousPeriod(rng)

	compCtx, cancelComparison := context.WithCancel(ctx)
	defer cancelComparison()

	var (
		previous *reporting.AggregatedCampaignData
		compWG   sync.WaitGroup
	)
	compWG.Add(1)
	go func() {
		defer compWG.Done()
		defer func() {
			if r := recover(); r != nil {
				previous = nil
				logger.Warn("comparison period fetch panicked",
					zap.String("period", prevRng.String()),
					zap.Any("panic", r),
					zap.Stack("stack"))
			}
		}()
		data, err := o.fetch(compCtx, acc, prevRng, "previous")
		if err != nil {
			logger.Warn("comparison period unavailable",
				zap.String("period", prevRng.String()),
				zap.Error(err))
			return
		}
		previous = data
	}()

	current, err := o.fetch(ctx, acc, rng, "current")
	if err != nil {
		cancelComparison()
		compWG.Wait()
		return err
	}
	compWG.Wait()

	o.persistCampaigns(ctx, report, acc, current, logger)

	ins, err := o.generateInsights(ctx, current, report.TemplateKind)
	if err != nil {
		return fmt.Errorf("generate insights: %w", err)
	}

	res := models.ReportResult{
		Totals:          *current.PeriodTotals(),
		Description:     ins.Description,
		Recommendations: ins.Recommendations,
	}
	if previous != nil {
		res.Previous = previous.PeriodTotals()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := o.store.CompleteReport(writeCtx, report.ID, res); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, acc *models.AdAccount, rng models.DateRange, period string) (*reporting.AggregatedCampaignData, error) {
	ctx, span := o.tracer.Start(ctx, "report.fetch."+period, trace.WithAttributes(
		attribute.String("period.from", rng.FromString()),
		attribute.String("period.to", rng.ToString()),
	))
	defer span.End()

	if o.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.FetchTimeout)
		defer cancel()
	}

	data, err := o.fetcher.FetchCampaignData(ctx, acc, rng)
	if err != nil {
		o.metrics.IncrementPlatformFetches(string(acc.Platform), period, "failure")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	o.metrics.IncrementPlatformFetches(string(acc.Platform), period, "success")
	span.SetAttributes(attribute.Int("campaigns", len(data.Campaigns)))
	return data, nil
}

func (o *Orchestrator) generateInsights(ctx context.Context, data *reporting.AggregatedCampaignData, kind models.TemplateKind) (*insights.Insights, error) {
	ctx, span := o.tracer.Start(ctx, "report.insights")
	defer span.End()

	if o.cfg.InsightTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.InsightTimeout)
		defer cancel()
	}
	ins, err := o.generator.Generate(ctx, data, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return ins, nil
}

// persistCampaigns stores per-campaign rows. Failures are logged and
// counted but never fail the report.
func (o *Orchestrator) persistCampaigns(ctx context.Context, report *models.Report, acc *models.AdAccount, data *reporting.AggregatedCampaignData, logger *zap.Logger) {
	rows := CampaignRows(report, acc, data, o.now())
	if len(rows) == 0 {
		return
	}
	if err := o.store.InsertCampaignData(ctx, rows); err != nil {
		o.metrics.IncrementCampaignPersistErrors()
		logger.Error("failed to persist campaign rows",
			zap.Int("rows", len(rows)),
			zap.Error(err))
	}
}

// CampaignRows converts aggregated campaigns into persisted rows. Revenue is
// roas*spend when the platform reports ROAS and 0 otherwise.
func CampaignRows(report *models.Report, acc *models.AdAccount, data *reporting.AggregatedCampaignData, fetchedAt time.Time) []models.CampaignData {
	rows := make([]models.CampaignData, 0, len(data.Campaigns))
	for _, c := range data.Campaigns {
		revenue := 0.0
		if c.ROAS != nil {
			revenue = *c.ROAS * c.Spend
		}
		rows = append(rows, models.CampaignData{
			ReportID:          report.ID,
			AdAccountID:       acc.ID,
			Platform:          acc.Platform,
			CampaignID:        c.CampaignID,
			CampaignName:      c.CampaignName,
			DateFrom:          data.DateFrom,
			DateTo:            data.DateTo,
			Spend:             c.Spend,
			Impressions:       c.Impressions,
			Clicks:            c.Clicks,
			Conversions:       c.Conversions,
			Revenue:           revenue,
			CTR:               c.CTR,
			CPC:               c.CPC,
			CPM:               c.CPM,
			CostPerConversion: c.CostPerConversion,
			ROAS:              c.ROAS,
			Reach:             c.Reach,
			Frequency:         c.Frequency,
			FetchedAt:         fetchedAt,
		})
	}
	return rows
}

func (o *Orchestrator) fail(ctx context.Context, report *models.Report, cause error, start time.Time, logger *zap.Logger) {
	msg := cause.Error()
	logger.Error("report generation failed", zap.Error(cause), zap.Duration("duration", time.Since(start)))

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := o.store.FailReport(writeCtx, report.ID, msg); err != nil {
		logger.Error("failed to mark report as failed", zap.Error(err))
	}

	o.metrics.IncrementReports(string(models.ReportFailed))
	o.metrics.RecordPipelineDuration(string(models.ReportFailed), time.Since(start))
	o.notify(ctx, report, models.ReportFailed, msg, logger)
}

func (o *Orchestrator) notify(ctx context.Context, report *models.Report, status models.ReportStatus, msg string, logger *zap.Logger) {
	if o.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	err := o.notifier.Notify(notifyCtx, notify.Notification{
		ReportID:     report.ID,
		UserID:       report.UserID,
		ReportName:   report.Name,
		Status:       status,
		ErrorMessage: msg,
	})
	if err != nil {
		o.metrics.IncrementNotifications("failure")
		logger.Warn("failed to send report notification", zap.Error(err))
		return
	}
	o.metrics.IncrementNotifications("success")
}
