package insights

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
)

type fakeCompleter struct {
	completion *Completion
	err        error
	gotOpts    Options
	gotMsgs    []Message
}

func (f *fakeCompleter) Provider() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, msgs []Message, opts Options) (*Completion, error) {
	f.gotMsgs, f.gotOpts = msgs, opts
	return f.completion, f.err
}

func TestGeneratorParsesCompletion(t *testing.T) {
	fc := &fakeCompleter{completion: &Completion{
		Text:         "DESCRIPTION:\nGood month.\nRECOMMENDATIONS:\n1. Scale Bravo\n2. Pause Delta",
		FinishReason: FinishStop,
		Usage:        Usage{PromptTokens: 300, CompletionTokens: 80, TotalTokens: 380},
	}}
	metrics := observability.NewMockMetricsRegistry()
	g := NewGenerator(fc, Options{Temperature: 0.3, MaxTokens: 2000}, zap.NewNop(), metrics)

	got, err := g.Generate(context.Background(), sampleData(t), models.TemplateSales)
	require.NoError(t, err)
	assert.Equal(t, "Good month.", got.Description)
	assert.Equal(t, []string{"Scale Bravo", "Pause Delta"}, got.Recommendations)
	assert.Equal(t, 2000, fc.gotOpts.MaxTokens)
	assert.InDelta(t, 0.3, fc.gotOpts.Temperature, 1e-9)
	assert.Equal(t, 1, metrics.CompletionRequests["fake|success"])
	assert.Equal(t, 300, metrics.CompletionTokens["fake|prompt"])
}

func TestGeneratorWrapsProviderErrors(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("connection reset")}
	metrics := observability.NewMockMetricsRegistry()
	g := NewGenerator(fc, Options{MaxTokens: 10}, zap.NewNop(), metrics)

	_, err := g.Generate(context.Background(), sampleData(t), models.TemplateLeads)
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "fake", ge.Provider)
	assert.Equal(t, 1, metrics.CompletionRequests["fake|failure"])
}

func TestGeneratorRejectsEmptyCompletion(t *testing.T) {
	fc := &fakeCompleter{completion: &Completion{Text: "  ", FinishReason: FinishLength}}
	g := NewGenerator(fc, Options{MaxTokens: 10}, zap.NewNop(), observability.NewNoOpRegistry())

	_, err := g.Generate(context.Background(), sampleData(t), models.TemplateReach)
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "empty completion", ge.Message)
}
