// Package insights turns aggregated campaign data into a narrative summary and
// recommendations using a text completion provider.
package insights

import (
	"context"
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a completion provider.
type Message struct {
	Role    Role
	Content string
}

// Options tune a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Finish reasons shared by all providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// Completion is a provider's answer.
type Completion struct {
	Text         string
	Model        string
	Usage        Usage
	FinishReason string
}

// Completer is implemented once per completion provider.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
}

// GenerationError is returned when insights could not be produced.
type GenerationError struct {
	Provider string
	// StatusCode is the provider's HTTP status, 0 when none was received.
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s completion failed (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s completion failed: %s", e.Provider, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }
