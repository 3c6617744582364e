package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("META_GRAPH_URL", "")
	t.Setenv("GOOGLE_ADS_URL", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("PLATFORM_RATE_LIMIT_ENABLED", "")
	t.Setenv("PLATFORM_RATE_LIMIT_BURST", "")
	t.Setenv("PLATFORM_MAX_RETRIES", "")

	cfg := Load()
	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "https://graph.facebook.com/v18.0", cfg.MetaGraphURL)
	assert.Equal(t, "https://googleads.googleapis.com/v22", cfg.GoogleAdsURL)
	assert.Equal(t, ProviderOpenAI, cfg.AIProvider)
	assert.Equal(t, 2000, cfg.AIMaxTokens)
	assert.InDelta(t, 0.3, cfg.AITemperature, 1e-9)
	assert.Equal(t, 0, cfg.MonthlyReportLimit)
	assert.True(t, cfg.PlatformRateLimitEnabled)
	assert.Equal(t, 5, cfg.PlatformRateBurst)
	assert.Equal(t, 1, cfg.PlatformRateRefill)
	assert.Equal(t, 2, cfg.PlatformMaxRetries)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("META_GRAPH_API_VERSION", "v19.0")
	t.Setenv("GOOGLE_ADS_URL", "http://google.local/v22/")
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("PLATFORM_TIMEOUT", "12")
	t.Setenv("AI_TIMEOUT", "90s")
	t.Setenv("PIPELINE_WORKERS", "bogus")
	t.Setenv("PLATFORM_RATE_LIMIT_ENABLED", "false")
	t.Setenv("PLATFORM_RATE_LIMIT_BURST", "20")

	cfg := Load()
	assert.Equal(t, "https://graph.facebook.com/v19.0", cfg.MetaGraphURL)
	assert.Equal(t, "http://google.local/v22", cfg.GoogleAdsURL)
	assert.Equal(t, ProviderAnthropic, cfg.AIProvider)
	assert.Equal(t, 12*time.Second, cfg.PlatformTimeout)
	assert.Equal(t, 90*time.Second, cfg.AITimeout)
	assert.Equal(t, 4, cfg.PipelineWorkers)
	assert.False(t, cfg.PlatformRateLimitEnabled)
	assert.Equal(t, 20, cfg.PlatformRateBurst)
}

func TestValidate(t *testing.T) {
	cfg := Config{AIProvider: ProviderOpenAI, AIMaxTokens: 100}
	require.Error(t, cfg.Validate())

	cfg.OpenAIAPIKey = "sk-test"
	require.NoError(t, cfg.Validate())

	cfg.AIProvider = ProviderAnthropic
	require.Error(t, cfg.Validate())
	cfg.AnthropicAPIKey = "ak-test"
	require.NoError(t, cfg.Validate())

	cfg.AIProvider = "mistral"
	assert.Error(t, cfg.Validate())
}
