package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/middleware"
)

// HealthHandler reports whether the service can reach its database.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	w.Header().Set("Content-Type", "application/json")
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			middleware.LoggerFromRequest(r, s.Logger).Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			s.Metrics.IncrementRequests(endpoint, method, "503")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
