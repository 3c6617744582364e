package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions selects how a binary's logger is built.
type LoggerOptions struct {
	Service string
	Level   zapcore.Level
	// Output is a zap sink such as "stdout" or "stderr". Processes that speak
	// a protocol on stdout must log to stderr.
	Output string
	// Global installs the logger with zap.ReplaceGlobals.
	Global bool
}

// InitLoggerWithService builds the JSON logger for a long running service.
// The level comes from LOG_LEVEL, or from ENV when LOG_LEVEL is unset.
func InitLoggerWithService(serviceName string) (*zap.Logger, error) {
	return NewLogger(LoggerOptions{Service: serviceName, Level: LevelFromEnv(), Output: "stdout", Global: true})
}

// InitLoggerWithLevel builds a stderr logger at level for command line tools.
func InitLoggerWithLevel(level zapcore.Level, serviceName string) (*zap.Logger, error) {
	return NewLogger(LoggerOptions{Service: serviceName, Level: level, Output: "stderr"})
}

// NewLogger builds a production zap logger named and tagged with the service.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)
	if opts.Output != "" {
		cfg.OutputPaths = []string{opts.Output}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	// field names match the Promtail pipeline
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		logger = logger.Named(opts.Service).With(zap.String("service", opts.Service))
	}
	if opts.Global {
		zap.ReplaceGlobals(logger)
	}
	return logger, nil
}

// LevelFromEnv reads LOG_LEVEL. Without it, ENV=development or dev selects
// debug and anything else info.
func LevelFromEnv() zapcore.Level {
	return parseLevel(os.Getenv("LOG_LEVEL"), os.Getenv("ENV"))
}

func parseLevel(logLevel, env string) zapcore.Level {
	if logLevel == "" {
		switch strings.ToLower(env) {
		case "development", "dev":
			return zap.DebugLevel
		default:
			return zap.InfoLevel
		}
	}
	level, err := zapcore.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		return zap.InfoLevel
	}
	return level
}
