package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/middleware"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/pipeline"
)

// UserIDHeader carries the authenticated user id set by the upstream gateway.
const UserIDHeader = middleware.UserIDHeader

// Store is the read side of report persistence used by the handlers.
type Store interface {
	Ping(ctx context.Context) error
	GetAdAccount(ctx context.Context, id string) (*models.AdAccount, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	GetReportByShareToken(ctx context.Context, token string) (*models.Report, error)
	ListReports(ctx context.Context, userID string, limit int) ([]models.Report, error)
	ListCampaignData(ctx context.Context, reportID string) ([]models.CampaignData, error)
	SetShareToken(ctx context.Context, reportID, token string, expiresAt *time.Time) error
}

// ReportStarter starts asynchronous report generation.
type ReportStarter interface {
	StartReportGeneration(ctx context.Context, req pipeline.Request) (string, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger   *zap.Logger
	Store    Store
	Pipeline ReportStarter
	Metrics  observability.MetricsRegistry
	Config   config.Config

	now func() time.Time
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, store Store, starter ReportStarter, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:   logger,
		Store:    store,
		Pipeline: starter,
		Metrics:  metrics,
		Config:   cfg,
		now:      time.Now,
	}
}

// Router registers all routes on a gorilla/mux router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	reports := r.PathPrefix("/api/reports").Subrouter()
	reports.HandleFunc("", s.ListReportsHandler).Methods("GET")
	reports.HandleFunc("/generate", s.GenerateReportHandler).Methods("POST")
	reports.HandleFunc("/{id}", s.GetReportHandler).Methods("GET")
	reports.HandleFunc("/{id}/campaigns", s.ListCampaignsHandler).Methods("GET")
	reports.HandleFunc("/{id}/campaigns.csv", s.CampaignsCSVHandler).Methods("GET")
	reports.HandleFunc("/{id}/pdf", s.ReportPDFHandler).Methods("GET")
	reports.HandleFunc("/{id}/share", s.ShareReportHandler).Methods("POST")

	r.HandleFunc("/public/reports/{token}", s.PublicReportHandler).Methods("GET")
	return r
}

// Handler returns the router wrapped with tracing and request logging.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(middleware.WithRequestLogger(s.Logger)(s.Router()), s.Config.ServiceName)
}

func (s *Server) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
