package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level, env string
		want       zapcore.Level
	}{
		{"", "", zap.InfoLevel},
		{"", "development", zap.DebugLevel},
		{"", "DEV", zap.DebugLevel},
		{"WARN", "dev", zap.WarnLevel},
		{"error", "", zap.ErrorLevel},
		{"chatty", "", zap.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.level, tt.env), "LOG_LEVEL=%q ENV=%q", tt.level, tt.env)
	}
}

func TestNewLoggerStderr(t *testing.T) {
	logger, err := NewLogger(LoggerOptions{Service: "adreports-test", Level: zap.WarnLevel, Output: "stderr"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestSamplerDescriptions(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "ParentBased{root:AlwaysOnSampler")
	assert.Contains(t, sampler(2).Description(), "ParentBased{root:AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "ParentBased{root:AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "ParentBased{root:TraceIDRatioBased{0.25}")
}

func TestMockMetricsRegistry(t *testing.T) {
	m := NewMockMetricsRegistry()
	m.IncrementPlatformThrottled("meta")
	m.IncrementPlatformThrottled("meta")
	assert.Equal(t, 2, m.ThrottleCount("meta"))
	assert.Zero(t, m.ThrottleCount("google"))
}
