package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/export"
	"github.com/patrickwarner/adreports/internal/middleware"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/pipeline"
	"github.com/patrickwarner/adreports/internal/reporting"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// GenerateReportRequest is the payload for POST /api/reports/generate.
type GenerateReportRequest struct {
	AccountID    string `json:"accountId"`
	TemplateType string `json:"templateType"`
	DateRange    struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"dateRange"`
	Name string `json:"name,omitempty"`
}

// GenerateReportResponse acknowledges a started report.
type GenerateReportResponse struct {
	Success  bool   `json:"success"`
	ReportID string `json:"reportId"`
	Message  string `json:"message"`
}

// ReportResponse is a report plus percentage changes against the comparison
// period. Changes is omitted when no comparison snapshot exists.
type ReportResponse struct {
	*models.Report
	Changes map[string]*float64 `json:"changes,omitempty"`
}

func newReportResponse(r *models.Report) ReportResponse {
	resp := ReportResponse{Report: r}
	if r.Totals == nil || r.Previous == nil {
		return resp
	}
	cur, prev := r.Totals, r.Previous
	resp.Changes = map[string]*float64{
		"spend":       reporting.PercentChange(cur.Spend, prev.Spend),
		"impressions": reporting.PercentChange(float64(cur.Impressions), float64(prev.Impressions)),
		"clicks":      reporting.PercentChange(float64(cur.Clicks), float64(prev.Clicks)),
		"conversions": reporting.PercentChange(cur.Conversions, prev.Conversions),
		"ctr":         reporting.PercentChange(cur.CTR, prev.CTR),
		"cpc":         reporting.PercentChange(cur.CPC, prev.CPC),
		"cpm":         reporting.PercentChange(cur.CPM, prev.CPM),
	}
	if cur.ROAS != nil && prev.ROAS != nil {
		resp.Changes["roas"] = reporting.PercentChange(*cur.ROAS, *prev.ROAS)
	}
	return resp
}

// GenerateReportHandler handles POST /api/reports/generate. The report is
// created in generating state and built in the background.
func (s *Server) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/generate"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	userID, ok := s.userID(w, r, endpoint, start)
	if !ok {
		return
	}

	var req GenerateReportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, "invalid json")
		return
	}
	if req.AccountID == "" {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, "accountId is required")
		return
	}
	kind, err := models.ParseTemplateKind(req.TemplateType)
	if err != nil {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, err.Error())
		return
	}
	rng, err := models.ParseDateRange(req.DateRange.From, req.DateRange.To)
	if err != nil {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, err.Error())
		return
	}

	reportID, err := s.Pipeline.StartReportGeneration(r.Context(), pipeline.Request{
		UserID:       userID,
		AccountID:    req.AccountID,
		Name:         req.Name,
		TemplateKind: kind,
		DateRange:    rng,
	})
	switch {
	case errors.Is(err, pipeline.ErrAccountNotFound):
		s.writeError(w, r, endpoint, http.StatusNotFound, start, "ad account not found")
		return
	case errors.Is(err, pipeline.ErrAccountInactive):
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, err.Error())
		return
	case errors.Is(err, pipeline.ErrReportLimitReached):
		s.writeError(w, r, endpoint, http.StatusForbidden, start, "monthly report limit reached")
		return
	case errors.Is(err, pipeline.ErrShuttingDown):
		s.writeError(w, r, endpoint, http.StatusServiceUnavailable, start, err.Error())
		return
	case err != nil:
		logger.Error("failed to start report generation",
			zap.String("user_id", userID),
			zap.String("account_id", req.AccountID),
			zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to start report generation")
		return
	}

	s.writeJSON(w, r, endpoint, http.StatusAccepted, start, GenerateReportResponse{
		Success:  true,
		ReportID: reportID,
		Message:  "Report generation started",
	})
}

// ListReportsHandler handles GET /api/reports?limit=N for the caller.
func (s *Server) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports"

	userID, ok := s.userID(w, r, endpoint, start)
	if !ok {
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, endpoint, http.StatusBadRequest, start, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	reports, err := s.Store.ListReports(r.Context(), userID, limit)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("failed to list reports", zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	s.writeJSON(w, r, endpoint, http.StatusOK, start, map[string]any{"reports": reports})
}

// ownedReport loads the {id} report for the caller. Reports of other users
// are reported as missing.
func (s *Server) ownedReport(w http.ResponseWriter, r *http.Request, endpoint string, start time.Time) (*models.Report, bool) {
	userID, ok := s.userID(w, r, endpoint, start)
	if !ok {
		return nil, false
	}
	id := mux.Vars(r)["id"]
	report, err := s.Store.GetReport(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) || (err == nil && report.UserID != userID) {
		s.writeError(w, r, endpoint, http.StatusNotFound, start, "report not found")
		return nil, false
	}
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("failed to load report",
			zap.String("report_id", id),
			zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to load report")
		return nil, false
	}
	return report, true
}

// pollRetryAfter is the Retry-After hint, in seconds, sent while a report is generating.
const pollRetryAfter = "5"

// GetReportHandler handles GET /api/reports/{id}.
func (s *Server) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/{id}"

	report, ok := s.ownedReport(w, r, endpoint, start)
	if !ok {
		return
	}
	if !report.Status.Terminal() {
		w.Header().Set("Retry-After", pollRetryAfter)
	}
	s.writeJSON(w, r, endpoint, http.StatusOK, start, newReportResponse(report))
}

func (s *Server) campaigns(w http.ResponseWriter, r *http.Request, endpoint string, start time.Time, reportID string) ([]models.CampaignData, bool) {
	rows, err := s.Store.ListCampaignData(r.Context(), reportID)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("failed to load campaigns",
			zap.String("report_id", reportID),
			zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to load campaigns")
		return nil, false
	}
	if rows == nil {
		rows = []models.CampaignData{}
	}
	return rows, true
}

// ListCampaignsHandler handles GET /api/reports/{id}/campaigns.
func (s *Server) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/{id}/campaigns"

	report, ok := s.ownedReport(w, r, endpoint, start)
	if !ok {
		return
	}
	rows, ok := s.campaigns(w, r, endpoint, start, report.ID)
	if !ok {
		return
	}
	s.writeJSON(w, r, endpoint, http.StatusOK, start, map[string]any{"campaigns": rows})
}

// CampaignsCSVHandler handles GET /api/reports/{id}/campaigns.csv.
func (s *Server) CampaignsCSVHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/{id}/campaigns.csv"

	report, ok := s.ownedReport(w, r, endpoint, start)
	if !ok {
		return
	}
	rows, ok := s.campaigns(w, r, endpoint, start, report.ID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCampaignsCSV(&buf, rows); err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("failed to render csv", zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to render csv")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+report.ID+`-campaigns.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	s.record(endpoint, r.Method, http.StatusOK, start)
}

// ReportPDFHandler handles GET /api/reports/{id}/pdf for completed reports.
func (s *Server) ReportPDFHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/{id}/pdf"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	report, ok := s.ownedReport(w, r, endpoint, start)
	if !ok {
		return
	}
	if report.Status != models.ReportCompleted {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, "report is not completed")
		return
	}
	rows, ok := s.campaigns(w, r, endpoint, start, report.ID)
	if !ok {
		return
	}
	acc, err := s.Store.GetAdAccount(r.Context(), report.AdAccountID)
	if err != nil {
		logger.Warn("rendering pdf without account details",
			zap.String("report_id", report.ID),
			zap.Error(err))
		acc = nil
	}

	var buf bytes.Buffer
	if err := export.WriteReportPDF(&buf, export.PDFInput{Report: report, Account: acc, Campaigns: rows, Now: s.clock()}); err != nil {
		logger.Error("failed to render pdf", zap.String("report_id", report.ID), zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+report.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	s.record(endpoint, r.Method, http.StatusOK, start)
}
