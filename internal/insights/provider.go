package insights

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
)

// ProviderConfig selects and configures the completion provider. It is built
// once at startup.
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// ProviderConfigFrom picks the settings for cfg.AIProvider.
func ProviderConfigFrom(cfg config.Config) ProviderConfig {
	pc := ProviderConfig{Provider: cfg.AIProvider, Timeout: cfg.AITimeout}
	switch cfg.AIProvider {
	case config.ProviderAnthropic:
		pc.APIKey, pc.Model, pc.BaseURL = cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.AnthropicBaseURL
	default:
		pc.APIKey, pc.Model, pc.BaseURL = cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL
	}
	return pc
}

// OptionsFrom returns the completion options configured for report insights.
func OptionsFrom(cfg config.Config) Options {
	return Options{Temperature: cfg.AITemperature, MaxTokens: cfg.AIMaxTokens}
}

// NewCompleter constructs the Completer for pc.Provider.
func NewCompleter(pc ProviderConfig, logger *zap.Logger) (Completer, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("missing api key for provider %q", pc.Provider)
	}
	switch pc.Provider {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(pc.APIKey, pc.Model, pc.BaseURL, pc.Timeout, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicCompleter(pc.APIKey, pc.Model, pc.BaseURL, pc.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", pc.Provider)
	}
}
