package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/middleware"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) record(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, endpoint string, status int, start time.Time, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("failed to encode response",
			zap.String("endpoint", endpoint),
			zap.Error(err))
	}
	s.record(endpoint, r.Method, status, start)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, endpoint string, status int, start time.Time, msg string) {
	s.writeJSON(w, r, endpoint, status, start, errorResponse{Success: false, Error: msg})
}

// userID returns the caller id or writes 401.
func (s *Server) userID(w http.ResponseWriter, r *http.Request, endpoint string, start time.Time) (string, bool) {
	id := r.Header.Get(UserIDHeader)
	if id == "" {
		s.writeError(w, r, endpoint, http.StatusUnauthorized, start, "unauthorized")
		return "", false
	}
	return id, true
}
