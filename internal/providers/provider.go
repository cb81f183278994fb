// Package providers abstracts the generative-model capability behind a
// narrow chat interface so the pipeline never touches a vendor SDK
// directly and tests can swap in a mock.
package providers

import (
	"context"
	"encoding/json"
	"time"
)

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// LLMClient is the text-completion capability the pipeline invokes.
// Implementations must honor context cancellation and deadlines; the
// pipeline enforces its timeout through the context.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g. "openai").
	Name() string
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a request to the model.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection; the client default applies when empty.
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// JSONOutput asks the model for a structured JSON object response.
	JSONOutput bool `json:"-"`

	// RequestID correlates logs across the call.
	RequestID string `json:"-"`
}

// ChatResult is the response from a model call.
type ChatResult struct {
	Content string `json:"content"`

	// ParsedJSON is set when JSONOutput was requested and the content
	// parsed cleanly. Callers needing structure must check it.
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	ExecutionTime time.Duration `json:"execution_time"`
	RequestID     string        `json:"request_id,omitempty"`
}
