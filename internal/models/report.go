package models

import (
	"fmt"
	"time"
)

// ReportStatus tracks the lifecycle of a report.
// generating moves to exactly one of completed or failed.
type ReportStatus string

const (
	ReportGenerating ReportStatus = "generating"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s ReportStatus) Terminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

// PeriodTotals are the account-level totals persisted for one period.
type PeriodTotals struct {
	DateFrom    time.Time `json:"date_from"`
	DateTo      time.Time `json:"date_to"`
	Spend       float64   `json:"spend"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions float64   `json:"conversions"`
	CTR         float64   `json:"ctr"`
	CPC         float64   `json:"cpc"`
	CPM         float64   `json:"cpm"`
	// ROAS is nil when the platform supplied no revenue data.
	ROAS *float64 `json:"roas"`
}

// Report is a generated performance report for one ad account and period.
type Report struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"user_id"`
	AdAccountID         string        `json:"ad_account_id"`
	Name                string        `json:"name"`
	TemplateKind        TemplateKind  `json:"template_type"`
	DateFrom            time.Time     `json:"date_from"`
	DateTo              time.Time     `json:"date_to"`
	Status              ReportStatus  `json:"status"`
	ErrorMessage        string        `json:"error_message,omitempty"`
	AIDescription       string        `json:"ai_description,omitempty"`
	AIRecommendations   []string      `json:"ai_recommendations,omitempty"`
	Totals              *PeriodTotals `json:"totals,omitempty"`
	Previous            *PeriodTotals `json:"previous,omitempty"`
	ShareToken          string        `json:"-"`
	ShareTokenExpiresAt *time.Time    `json:"share_token_expires_at,omitempty"`
	GeneratedAt         *time.Time    `json:"generated_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// DateRange returns the report's current period.
func (r *Report) DateRange() DateRange {
	return DateRange{From: r.DateFrom, To: r.DateTo}
}

// DefaultReportName builds the name used when the caller supplies none.
func DefaultReportName(kind TemplateKind, rng DateRange) string {
	return fmt.Sprintf("%s Report - %s to %s", kind.Title(), rng.FromString(), rng.ToString())
}

// CampaignData is one persisted per-campaign row of a report.
type CampaignData struct {
	ID                string    `json:"id"`
	ReportID          string    `json:"report_id"`
	AdAccountID       string    `json:"ad_account_id"`
	Platform          Platform  `json:"platform"`
	CampaignID        string    `json:"campaign_id"`
	CampaignName      string    `json:"campaign_name"`
	DateFrom          time.Time `json:"date_from"`
	DateTo            time.Time `json:"date_to"`
	Spend             float64   `json:"spend"`
	Impressions       int64     `json:"impressions"`
	Clicks            int64     `json:"clicks"`
	Conversions       float64   `json:"conversions"`
	Revenue           float64   `json:"revenue"`
	CTR               float64   `json:"ctr"`
	CPC               float64   `json:"cpc"`
	CPM               float64   `json:"cpm"`
	CostPerConversion float64   `json:"cost_per_conversion"`
	ROAS              *float64  `json:"roas"`
	Reach             *int64    `json:"reach,omitempty"`
	Frequency         *float64  `json:"frequency,omitempty"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// ReportResult is written when a report completes.
type ReportResult struct {
	Totals          PeriodTotals
	Previous        *PeriodTotals
	Description     string
	Recommendations []string
}
