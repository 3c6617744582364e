package insights

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/reporting"
)

// Generator produces report insights with a single completion call.
type Generator struct {
	completer Completer
	opts      Options
	logger    *zap.Logger
	metrics   observability.MetricsRegistry
}

// NewGenerator creates a Generator using completer with fixed opts.
func NewGenerator(completer Completer, opts Options, logger *zap.Logger, metrics observability.MetricsRegistry) *Generator {
	return &Generator{completer: completer, opts: opts, logger: logger, metrics: metrics}
}

// Generate builds the prompt for data, calls the provider and parses the
// answer. Any provider failure is returned as *GenerationError.
func (g *Generator) Generate(ctx context.Context, data *reporting.AggregatedCampaignData, kind models.TemplateKind) (*Insights, error) {
	provider := g.completer.Provider()
	start := time.Now()
	outcome := "success"
	defer func() {
		g.metrics.RecordCompletionLatency(provider, time.Since(start))
		g.metrics.IncrementCompletionRequests(provider, outcome)
	}()

	completion, err := g.completer.Complete(ctx, BuildMessages(data, kind), g.opts)
	if err != nil {
		outcome = "failure"
		var ge *GenerationError
		if errors.As(err, &ge) {
			return nil, err
		}
		return nil, &GenerationError{Provider: provider, Message: err.Error(), Err: err}
	}

	g.metrics.AddCompletionTokens(provider, "prompt", completion.Usage.PromptTokens)
	g.metrics.AddCompletionTokens(provider, "completion", completion.Usage.CompletionTokens)

	if strings.TrimSpace(completion.Text) == "" {
		outcome = "empty"
		return nil, &GenerationError{Provider: provider, Message: "empty completion", Code: completion.FinishReason}
	}
	if completion.FinishReason == FinishLength {
		g.logger.Warn("completion truncated by token limit",
			zap.String("provider", provider),
			zap.String("model", completion.Model),
			zap.Int("max_tokens", g.opts.MaxTokens))
	}

	parsed := ParseInsights(completion.Text)
	g.logger.Debug("insights generated",
		zap.String("provider", provider),
		zap.String("model", completion.Model),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
		zap.Int("recommendations", len(parsed.Recommendations)))
	return &parsed, nil
}
