package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/pipeline"
	"github.com/patrickwarner/adreports/internal/reporting"
)

const (
	toolTimeout      = 10 * time.Second
	defaultListLimit = 10
	maxListLimit     = 50
)

type reportStore interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, userID string, limit int) ([]models.Report, error)
	ListCampaignData(ctx context.Context, reportID string) ([]models.CampaignData, error)
}

type reportStarter interface {
	StartReportGeneration(ctx context.Context, req pipeline.Request) (string, error)
}

type GetReportInput struct {
	UserID   string `json:"user_id"`
	ReportID string `json:"report_id"`
}

type ListReportsInput struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type GenerateReportInput struct {
	UserID       string `json:"user_id"`
	AccountID    string `json:"account_id"`
	TemplateType string `json:"template_type"`
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	Name         string `json:"name,omitempty"`
}

type PeriodSummary struct {
	DateFrom    string   `json:"date_from"`
	DateTo      string   `json:"date_to"`
	Spend       float64  `json:"spend"`
	Impressions int64    `json:"impressions"`
	Clicks      int64    `json:"clicks"`
	Conversions float64  `json:"conversions"`
	CTR         float64  `json:"ctr"`
	CPC         float64  `json:"cpc"`
	CPM         float64  `json:"cpm"`
	ROAS        *float64 `json:"roas,omitempty"`
}

type ReportSummary struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Status               string         `json:"status"`
	TemplateType         string         `json:"template_type"`
	DateFrom             string         `json:"date_from"`
	DateTo               string         `json:"date_to"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	Description          string         `json:"description,omitempty"`
	Recommendations      []string       `json:"recommendations,omitempty"`
	Totals               *PeriodSummary `json:"totals,omitempty"`
	Previous             *PeriodSummary `json:"previous,omitempty"`
	SpendChangePct       *float64       `json:"spend_change_pct,omitempty"`
	ClicksChangePct      *float64       `json:"clicks_change_pct,omitempty"`
	ConversionsChangePct *float64       `json:"conversions_change_pct,omitempty"`
}

type ListReportsOutput struct {
	Reports []ReportSummary `json:"reports"`
}

type CampaignRow struct {
	CampaignID  string   `json:"campaign_id"`
	Name        string   `json:"name"`
	Spend       float64  `json:"spend"`
	Impressions int64    `json:"impressions"`
	Clicks      int64    `json:"clicks"`
	Conversions float64  `json:"conversions"`
	CTR         float64  `json:"ctr"`
	CPC         float64  `json:"cpc"`
	ROAS        *float64 `json:"roas,omitempty"`
}

type ListCampaignsOutput struct {
	ReportID  string        `json:"report_id"`
	Campaigns []CampaignRow `json:"campaigns"`
}

type GenerateReportOutput struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// ReportTools exposes report reads and generation as MCP tools.
type ReportTools struct {
	store   reportStore
	starter reportStarter
	logger  *zap.Logger
}

func summarizePeriod(t *models.PeriodTotals) *PeriodSummary {
	if t == nil {
		return nil
	}
	return &PeriodSummary{
		DateFrom:    t.DateFrom.Format(models.DateLayout),
		DateTo:      t.DateTo.Format(models.DateLayout),
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

func summarize(r *models.Report) ReportSummary {
	s := ReportSummary{
		ID:              r.ID,
		Name:            r.Name,
		Status:          string(r.Status),
		TemplateType:    string(r.TemplateKind),
		DateFrom:        r.DateFrom.Format(models.DateLayout),
		DateTo:          r.DateTo.Format(models.DateLayout),
		ErrorMessage:    r.ErrorMessage,
		Description:     r.AIDescription,
		Recommendations: r.AIRecommendations,
		Totals:          summarizePeriod(r.Totals),
		Previous:        summarizePeriod(r.Previous),
	}
	if r.Totals != nil && r.Previous != nil {
		s.SpendChangePct = reporting.PercentChange(r.Totals.Spend, r.Previous.Spend)
		s.ClicksChangePct = reporting.PercentChange(float64(r.Totals.Clicks), float64(r.Previous.Clicks))
		s.ConversionsChangePct = reporting.PercentChange(r.Totals.Conversions, r.Previous.Conversions)
	}
	return s
}

func (t *ReportTools) ownedReport(ctx context.Context, userID, reportID string) (*models.Report, error) {
	if userID == "" || reportID == "" {
		return nil, errors.New("user_id and report_id are required")
	}
	r, err := t.store.GetReport(ctx, reportID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && r.UserID != userID) {
		return nil, fmt.Errorf("report %s not found", reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return r, nil
}

// GetReport implements the get_report tool.
func (t *ReportTools) GetReport(ctx context.Context, req *mcp.CallToolRequest, input GetReportInput) (*mcp.CallToolResult, ReportSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	r, err := t.ownedReport(ctx, input.UserID, input.ReportID)
	if err != nil {
		return nil, ReportSummary{}, err
	}
	return nil, summarize(r), nil
}

// ListReports implements the list_reports tool.
func (t *ReportTools) ListReports(ctx context.Context, req *mcp.CallToolRequest, input ListReportsInput) (*mcp.CallToolResult, ListReportsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	if input.UserID == "" {
		return nil, ListReportsOutput{}, errors.New("user_id is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	reports, err := t.store.ListReports(ctx, input.UserID, limit)
	if err != nil {
		return nil, ListReportsOutput{}, fmt.Errorf("list reports: %w", err)
	}
	out := ListReportsOutput{Reports: make([]ReportSummary, 0, len(reports))}
	for i := range reports {
		out.Reports = append(out.Reports, summarize(&reports[i]))
	}
	return nil, out, nil
}

// ListReportCampaigns implements the list_report_campaigns tool.
func (t *ReportTools) ListReportCampaigns(ctx context.Context, req *mcp.CallToolRequest, input GetReportInput) (*mcp.CallToolResult, ListCampaignsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	r, err := t.ownedReport(ctx, input.UserID, input.ReportID)
	if err != nil {
		return nil, ListCampaignsOutput{}, err
	}
	rows, err := t.store.ListCampaignData(ctx, r.ID)
	if err != nil {
		return nil, ListCampaignsOutput{}, fmt.Errorf("list campaigns: %w", err)
	}
	out := ListCampaignsOutput{ReportID: r.ID, Campaigns: make([]CampaignRow, 0, len(rows))}
	for _, c := range rows {
		out.Campaigns = append(out.Campaigns, CampaignRow{
			CampaignID:  c.CampaignID,
			Name:        c.CampaignName,
			Spend:       c.Spend,
			Impressions: c.Impressions,
			Clicks:      c.Clicks,
			Conversions: c.Conversions,
			CTR:         c.CTR,
			CPC:         c.CPC,
			ROAS:        c.ROAS,
		})
	}
	return nil, out, nil
}

// GenerateReport implements the generate_report tool. The report is built in
// the background; poll get_report for the result.
func (t *ReportTools) GenerateReport(ctx context.Context, req *mcp.CallToolRequest, input GenerateReportInput) (*mcp.CallToolResult, GenerateReportOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	if input.UserID == "" || input.AccountID == "" {
		return nil, GenerateReportOutput{}, errors.New("user_id and account_id are required")
	}
	kind, err := models.ParseTemplateKind(input.TemplateType)
	if err != nil {
		return nil, GenerateReportOutput{}, err
	}
	rng, err := models.ParseDateRange(input.DateFrom, input.DateTo)
	if err != nil {
		return nil, GenerateReportOutput{}, err
	}

	id, err := t.starter.StartReportGeneration(ctx, pipeline.Request{
		UserID:       input.UserID,
		AccountID:    input.AccountID,
		Name:         input.Name,
		TemplateKind: kind,
		DateRange:    rng,
	})
	if err != nil {
		t.logger.Warn("generate_report rejected",
			zap.String("user_id", input.UserID),
			zap.String("account_id", input.AccountID),
			zap.Error(err))
		return nil, GenerateReportOutput{}, fmt.Errorf("start report generation: %w", err)
	}
	return nil, GenerateReportOutput{
		ReportID: id,
		Status:   string(models.ReportGenerating),
		Message:  "Report generation started",
	}, nil
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

// register adds every report tool to server.
func (t *ReportTools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_report",
		Description: "Get a generated ad report with totals, comparison period and AI insights",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id":   stringProp("Owner of the report"),
				"report_id": stringProp("Report ID"),
			},
			"required": []string{"user_id", "report_id"},
		},
	}, t.GetReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_reports",
		Description: "List the most recent reports of a user",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": stringProp("User ID"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     maxListLimit,
					"description": "Maximum number of reports (optional, defaults to 10)",
				},
			},
			"required": []string{"user_id"},
		},
	}, t.ListReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_report_campaigns",
		Description: "List per-campaign metrics stored for a report",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id":   stringProp("Owner of the report"),
				"report_id": stringProp("Report ID"),
			},
			"required": []string{"user_id", "report_id"},
		},
	}, t.ListReportCampaigns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_report",
		Description: "Start generating a report for an ad account; returns the report ID immediately",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id":    stringProp("User ID"),
				"account_id": stringProp("Ad account ID"),
				"template_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"leads", "sales", "reach"},
					"description": "Report template",
				},
				"date_from": map[string]interface{}{
					"type":        "string",
					"format":      "date",
					"description": "First day of the period (YYYY-MM-DD)",
				},
				"date_to": map[string]interface{}{
					"type":        "string",
					"format":      "date",
					"description": "Last day of the period (YYYY-MM-DD)",
				},
				"name": stringProp("Report name (optional)"),
			},
			"required": []string{"user_id", "account_id", "template_type", "date_from", "date_to"},
		},
	}, t.GenerateReport)
}
