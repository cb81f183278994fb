package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// OpenAIName identifies the OpenAI client.
	OpenAIName = "openai"

	openAIDefaultModel       = "gpt-4-turbo-preview"
	openAIDefaultTemperature = 0.7
	openAIDefaultMaxTokens   = 4000
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // optional, for tests and proxies
	Logger      *slog.Logger
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a chat client with the given configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = openAIDefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = openAIDefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}, nil
}

// Name implements LLMClient.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Chat implements LLMClient. Timeouts and cancellation flow through ctx.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
	if req.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	c.logger.Debug("sending chat completion request",
		"model", model, "messages", len(messages), "request_id", req.RequestID)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	result := &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		Provider:         OpenAIName,
		ModelUsed:        model,
		ExecutionTime:    time.Since(start),
		RequestID:        req.RequestID,
	}

	if req.JSONOutput && json.Valid([]byte(result.Content)) {
		result.ParsedJSON = json.RawMessage(result.Content)
	}

	c.logger.Debug("chat completion received",
		"model", model, "total_tokens", result.TotalTokens,
		"latency", result.ExecutionTime, "request_id", req.RequestID)

	return result, nil
}
