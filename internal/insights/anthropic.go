package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
)

// AnthropicCompleter calls the Anthropic messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicCompleter creates a completer for model. baseURL may be empty.
// Retries are left to the caller.
func NewAnthropicCompleter(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *AnthropicCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

func (c *AnthropicCompleter) Provider() string { return config.ProviderAnthropic }

// Complete sends messages as one messages request. System messages are
// joined into the top-level system prompt.
func (c *AnthropicCompleter) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	var system []string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.wrapError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &Completion{
		Text:         text.String(),
		Model:        string(msg.Model),
		FinishReason: anthropicFinishReason(string(msg.StopReason)),
		Usage: Usage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

// anthropicErrorBody is the JSON error envelope of the messages API.
type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicCompleter) wrapError(err error) error {
	ge := &GenerationError{Provider: c.Provider(), Message: err.Error(), Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		ge.StatusCode = apiErr.StatusCode
		var body anthropicErrorBody
		if json.Unmarshal([]byte(apiErr.RawJSON()), &body) == nil && body.Error.Message != "" {
			ge.Code = body.Error.Type
			ge.Message = body.Error.Message
		}
	}
	return ge
}

func anthropicFinishReason(stop string) string {
	switch stop {
	case "end_turn", "stop_sequence":
		return FinishStop
	case "max_tokens":
		return FinishLength
	default:
		return stop
	}
}
