package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
)

// OpenAICompleter calls the OpenAI chat completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAICompleter creates a completer for model. baseURL may be empty.
func NewOpenAICompleter(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (c *OpenAICompleter) Provider() string { return config.ProviderOpenAI }

// Complete sends messages as a single chat completion request.
func (c *OpenAICompleter) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	// reasoning models reject temperature and max_tokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = opts.MaxTokens
	} else {
		req.MaxTokens = opts.MaxTokens
		req.Temperature = float32(opts.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &GenerationError{Provider: c.Provider(), Message: "no choices in response"}
	}

	choice := resp.Choices[0]
	return &Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAICompleter) wrapError(err error) error {
	ge := &GenerationError{Provider: c.Provider(), Message: err.Error(), Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ge.StatusCode = apiErr.HTTPStatusCode
		ge.Message = apiErr.Message
		if apiErr.Code != nil {
			ge.Code = fmt.Sprint(apiErr.Code)
		} else {
			ge.Code = apiErr.Type
		}
	case errors.As(err, &reqErr):
		ge.StatusCode = reqErr.HTTPStatusCode
	}
	return ge
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}
