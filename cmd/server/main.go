// Command server runs the report HTTP API and the background report pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/api"
	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/pipeline"
)

const (
	httpShutdownTimeout = 5 * time.Second
	// pipelineDrainTimeout bounds how long shutdown waits for running reports.
	pipelineDrainTimeout = 60 * time.Second
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.TempoEndpoint,
			SampleRate:  cfg.TracingSampleRate,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	redisStore, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisStore.Close()

	metrics := observability.NewPrometheusRegistry()
	orchestrator, err := pipeline.NewFromConfig(cfg, pg, redisStore, logger, metrics)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(logger, pg, orchestrator, metrics, cfg).Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	logger.Info("report service running",
		zap.String("addr", srv.Addr),
		zap.String("ai_provider", cfg.AIProvider),
		zap.Int("pipeline_workers", cfg.PipelineWorkers))

	serveErr := serve(ctx, srv, srv.ListenAndServe)

	drainCtx, cancel := context.WithTimeout(context.Background(), pipelineDrainTimeout)
	defer cancel()
	if err := orchestrator.Shutdown(drainCtx); err != nil {
		logger.Warn("report pipelines interrupted by shutdown", zap.Error(err))
	}
	return serveErr
}

// serve runs listen until it fails or ctx is done, then shuts srv down.
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errCh := make(chan error, 1)
	go func() {
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
