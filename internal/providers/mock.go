package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// MockName identifies the mock client.
const MockName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailWith     error
	ResponseText string
	ResponseJSON json.RawMessage

	// State
	requestCount atomic.Int64
}

var _ LLMClient = (*MockClient)(nil)

// NewMockClient creates a mock client with a canned response.
func NewMockClient() *MockClient {
	return &MockClient{ResponseText: "mock response"}
}

// Name implements LLMClient.
func (c *MockClient) Name() string { return MockName }

// Chat implements LLMClient.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.ShouldFail {
		if c.FailWith != nil {
			return nil, c.FailWith
		}
		return nil, fmt.Errorf("mock client configured to fail")
	}

	content := c.ResponseText
	if req.JSONOutput && len(c.ResponseJSON) > 0 {
		content = string(c.ResponseJSON)
	}

	result := &ChatResult{
		Content:          content,
		PromptTokens:     len(promptText(req)) / 4,
		CompletionTokens: len(content) / 4,
		Provider:         MockName,
		ModelUsed:        req.Model,
		ExecutionTime:    time.Since(start),
		RequestID:        fmt.Sprintf("mock-%d", count),
	}
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.JSONOutput && json.Valid([]byte(content)) {
		result.ParsedJSON = json.RawMessage(content)
	}

	return result, nil
}

// Requests returns the number of Chat invocations.
func (c *MockClient) Requests() int {
	return int(c.requestCount.Load())
}

func promptText(req *ChatRequest) string {
	var total string
	for _, m := range req.Messages {
		total += m.Content
	}
	return total
}
