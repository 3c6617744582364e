package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/notify"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/pipeline"
)

// serviceName tags MCP logs apart from the HTTP service.
const serviceName = "adreports-mcp"

func main() {
	// stdout carries the MCP protocol, so logs go to stderr.
	logger, err := observability.NewLogger(observability.LoggerOptions{
		Service: serviceName,
		Level:   observability.LevelFromEnv(),
		Output:  "stderr",
		Global:  true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config.Load()); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, 10, 5, 30*time.Minute, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	// Notifications are best effort; without Redis they are only logged.
	var publisher notify.Publisher
	if store, err := db.InitRedis(cfg.RedisAddr); err != nil {
		logger.Warn("Redis unavailable, notifications will be logged only", zap.Error(err))
	} else {
		defer store.Close()
		publisher = store
		logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	orchestrator, err := pipeline.NewFromConfig(cfg, pg, publisher, logger, observability.NewNoOpRegistry())
	if err != nil {
		return err
	}

	tools := &ReportTools{store: pg, starter: orchestrator, logger: logger}

	server := newServer(tools)
	transport := newTransport(os.Getenv("MCP_DEBUG") != "")

	logger.Info("MCP Server running via stdio")
	runErr := server.Run(ctx, transport)

	drainCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := orchestrator.Shutdown(drainCtx); err != nil {
		logger.Warn("report pipelines interrupted by shutdown", zap.Error(err))
	}
	return runErr
}

func newServer(tools *ReportTools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adreports",
		Version: observability.Version,
	}, nil)
	tools.register(server)
	return server
}

// newTransport returns the stdio transport, mirrored to stderr when debug is set.
func newTransport(debug bool) mcp.Transport {
	var transport mcp.Transport = &mcp.StdioTransport{}
	if debug {
		transport = &mcp.LoggingTransport{Transport: transport, Writer: os.Stderr}
	}
	return transport
}
