package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/middleware"
	"github.com/patrickwarner/adreports/internal/models"
)

// ShareResponse describes a public link to a report.
type ShareResponse struct {
	ShareToken string     `json:"shareToken"`
	ShareURL   string     `json:"shareUrl"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// PublicReportResponse is served to anonymous viewers of a shared report.
type PublicReportResponse struct {
	Report    ReportResponse        `json:"report"`
	Campaigns []models.CampaignData `json:"campaigns"`
}

// ShareReportHandler handles POST /api/reports/{id}/share. An unexpired
// token is reused; otherwise a new one is issued.
func (s *Server) ShareReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/api/reports/{id}/share"

	report, ok := s.ownedReport(w, r, endpoint, start)
	if !ok {
		return
	}
	if report.Status != models.ReportCompleted {
		s.writeError(w, r, endpoint, http.StatusBadRequest, start, "report is not completed")
		return
	}

	now := s.clock()
	token, expiresAt := report.ShareToken, report.ShareTokenExpiresAt
	if token == "" || (expiresAt != nil && !expiresAt.After(now)) {
		token = uuid.NewString()
		expiresAt = nil
		if ttl := s.Config.ShareTokenTTL; ttl > 0 {
			exp := now.Add(ttl).UTC()
			expiresAt = &exp
		}
		if err := s.Store.SetShareToken(r.Context(), report.ID, token, expiresAt); err != nil {
			middleware.LoggerFromRequest(r, s.Logger).Error("failed to store share token",
				zap.String("report_id", report.ID),
				zap.Error(err))
			s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to share report")
			return
		}
	}

	s.writeJSON(w, r, endpoint, http.StatusOK, start, ShareResponse{
		ShareToken: token,
		ShareURL:   s.Config.AppURL + "/public/reports/" + token,
		ExpiresAt:  expiresAt,
	})
}

// PublicReportHandler handles GET /public/reports/{token} without
// authentication.
func (s *Server) PublicReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/public/reports/{token}"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	token := mux.Vars(r)["token"]
	if _, err := uuid.Parse(token); err != nil {
		s.writeError(w, r, endpoint, http.StatusNotFound, start, "report not found")
		return
	}

	report, err := s.Store.GetReportByShareToken(r.Context(), token)
	if errors.Is(err, db.ErrNotFound) || (err == nil && report.Status != models.ReportCompleted) {
		s.writeError(w, r, endpoint, http.StatusNotFound, start, "report not found")
		return
	}
	if err != nil {
		logger.Error("failed to load shared report", zap.Error(err))
		s.writeError(w, r, endpoint, http.StatusInternalServerError, start, "failed to load report")
		return
	}
	if exp := report.ShareTokenExpiresAt; exp != nil && !exp.After(s.clock()) {
		s.writeError(w, r, endpoint, http.StatusGone, start, "share link expired")
		return
	}

	rows, ok := s.campaigns(w, r, endpoint, start, report.ID)
	if !ok {
		return
	}
	public := *report
	public.UserID = ""
	s.writeJSON(w, r, endpoint, http.StatusOK, start, PublicReportResponse{
		Report:    newReportResponse(&public),
		Campaigns: rows,
	})
}
