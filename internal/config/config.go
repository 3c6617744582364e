package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RedisAddr    string
	PostgresDSN  string
	ServiceName  string
	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
	// Ad platform APIs
	MetaGraphURL            string
	GoogleAdsURL            string
	GoogleAdsDeveloperToken string
	PlatformTimeout         time.Duration
	// Per-account throttle on ad platform calls
	PlatformRateLimitEnabled bool
	PlatformRateBurst        int
	PlatformRateRefill       int
	PlatformMaxRetries       int
	// Completion provider
	AIProvider       string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	ClaudeModel      string
	AnthropicBaseURL string
	AITemperature    float64
	AIMaxTokens      int
	AITimeout        time.Duration
	// Report pipeline
	PipelineWorkers    int
	MonthlyReportLimit int
	ShareTokenTTL      time.Duration
	NotifyChannel      string
	AppURL             string
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ServiceName = getenv("SERVICE_NAME", "adreports")

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	metaVersion := getenv("META_GRAPH_API_VERSION", "v18.0")
	cfg.MetaGraphURL = strings.TrimRight(getenv("META_GRAPH_URL", "https://graph.facebook.com/"+metaVersion), "/")
	googleVersion := getenv("GOOGLE_ADS_API_VERSION", "v22")
	cfg.GoogleAdsURL = strings.TrimRight(getenv("GOOGLE_ADS_URL", "https://googleads.googleapis.com/"+googleVersion), "/")
	cfg.GoogleAdsDeveloperToken = getenv("GOOGLE_ADS_DEVELOPER_TOKEN", "")
	cfg.PlatformTimeout = envDuration("PLATFORM_TIMEOUT", 30*time.Second)
	cfg.PlatformRateLimitEnabled = envBool("PLATFORM_RATE_LIMIT_ENABLED", true)
	cfg.PlatformRateBurst = envInt("PLATFORM_RATE_LIMIT_BURST", 5)
	cfg.PlatformRateRefill = envInt("PLATFORM_RATE_LIMIT_REFILL", 1)
	cfg.PlatformMaxRetries = envInt("PLATFORM_MAX_RETRIES", 2)

	cfg.AIProvider = strings.ToLower(getenv("AI_PROVIDER", ProviderOpenAI))
	cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY", "")
	cfg.OpenAIModel = getenv("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAIBaseURL = getenv("OPENAI_BASE_URL", "")
	cfg.AnthropicAPIKey = getenv("ANTHROPIC_API_KEY", "")
	cfg.ClaudeModel = getenv("CLAUDE_MODEL", "claude-haiku-4-5")
	cfg.AnthropicBaseURL = strings.TrimRight(getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"), "/")
	cfg.AITemperature = envFloat("AI_TEMPERATURE", 0.3)
	cfg.AIMaxTokens = envInt("AI_MAX_TOKENS", 2000)
	cfg.AITimeout = envDuration("AI_TIMEOUT", 60*time.Second)

	cfg.PipelineWorkers = envInt("PIPELINE_WORKERS", 4)
	// 0 disables the monthly limit
	cfg.MonthlyReportLimit = envInt("MONTHLY_REPORT_LIMIT", 0)
	cfg.ShareTokenTTL = envDuration("SHARE_TOKEN_TTL", 30*24*time.Hour)
	cfg.NotifyChannel = getenv("NOTIFY_CHANNEL", "report_notifications")
	cfg.AppURL = strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/")

	return cfg
}

// Validate checks that the selected completion provider is known and has
// credentials.
func (c Config) Validate() error {
	switch c.AIProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=%s", ProviderOpenAI)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER=%s", ProviderAnthropic)
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive")
	}
	return nil
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
