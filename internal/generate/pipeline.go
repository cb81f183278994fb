// Package generate orchestrates the context-augmented generation pipeline:
// resolve template, walk schema with responses, retrieve reference context,
// assemble the prompt, invoke the model, and classify the outcome.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/prompt"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
	"github.com/mrlynn/design-reviewer-backend/internal/schema"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
)

// DefaultSystemPrompt is the fixed persona for report generation.
const DefaultSystemPrompt = "You are a MongoDB Solutions Architect specializing in application design reviews."

// DefaultTopK is the retrieval result count when none is configured.
const DefaultTopK = 3

// DefaultModelTimeout bounds the model invocation when none is configured.
const DefaultModelTimeout = 120 * time.Second

// Config tunes the pipeline. Zero values fall back to package defaults.
type Config struct {
	TopK           int
	MaxPromptChars int
	ModelTimeout   time.Duration
	SystemPrompt   string
}

// Pipeline turns a template plus user responses into a generated document.
// It never writes to the store mid-generation, so cancellation cannot leave
// durable state inconsistent.
type Pipeline struct {
	store     store.Store
	retriever retrieval.Retriever
	llm       providers.LLMClient
	logger    *slog.Logger
	cfg       Config
}

// New creates a pipeline. The retriever may be nil, in which case every
// generation runs with a degraded (empty) context block.
func New(st store.Store, retriever retrieval.Retriever, llm providers.LLMClient, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: st, retriever: retriever, llm: llm, logger: logger, cfg: cfg}
}

// Request is the transient input to Generate.
type Request struct {
	TemplateID string         `json:"templateId"`
	Version    string         `json:"version,omitempty"`
	Responses  map[string]any `json:"responses"`
}

// ResponsesSummary counts the caller's answers.
type ResponsesSummary struct {
	Sections        int `json:"sections"`
	CompletedFields int `json:"completedFields"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	TemplateID       string           `json:"templateId"`
	TemplateVersion  string           `json:"templateVersion"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	ResponsesSummary ResponsesSummary `json:"responsesSummary"`
	ContextDegraded  bool             `json:"contextDegraded,omitempty"`
	SnippetsUsed     int              `json:"snippetsUsed"`
	SnippetsDropped  int              `json:"snippetsDropped,omitempty"`
	Model            string           `json:"model,omitempty"`
	TotalTokens      int              `json:"totalTokens,omitempty"`
}

// Result is the generated document plus metadata.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Generate runs the full pipeline for one request.
//
// Retrieval failure is non-fatal: the prompt is assembled with an empty
// context block and the result is marked ContextDegraded. Model failures
// are classified and surfaced without automatic retry - the call is not
// guaranteed idempotent, so retries belong to the caller.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Responses) == 0 {
		return nil, apperr.New(apperr.KindValidation, "responses are required and cannot be empty")
	}
	if req.TemplateID == "" {
		return nil, apperr.New(apperr.KindValidation, "templateId is required")
	}

	resolved, err := p.store.Get(ctx, req.TemplateID, req.Version)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := p.logger.With("template_id", req.TemplateID, "request_id", requestID)

	snippets, degraded := p.retrieve(ctx, buildQuery(req.Responses), log)

	fragments := schema.Walk(resolved.Content, req.Responses)
	assembled := prompt.Assemble(prompt.Input{
		GlobalContext:    resolved.Content.GlobalPromptContext,
		Fragments:        fragments,
		Snippets:         snippets,
		AnalysisTemplate: resolved.Content.AnalysisPromptTemplate,
		MaxChars:         p.cfg.MaxPromptChars,
	})

	wantJSON := structuredOutputDeclared(resolved.Content)

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	chat, err := p.llm.Chat(modelCtx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: p.cfg.SystemPrompt},
			{Role: providers.RoleUser, Content: assembled.Text},
		},
		JSONOutput: wantJSON,
		RequestID:  requestID,
	})
	if err != nil {
		return nil, classifyModelError(ctx, err)
	}

	if wantJSON && chat.ParsedJSON == nil {
		return nil, apperr.New(apperr.KindModelOutput,
			"model returned malformed structured output").WithDetails(truncate(chat.Content, 200))
	}

	log.Info("generation complete",
		"template_version", resolved.ResolvedVersion,
		"fragments", len(fragments),
		"snippets_used", assembled.SnippetsUsed,
		"snippets_dropped", assembled.DroppedSnippets,
		"context_degraded", degraded,
		"total_tokens", chat.TotalTokens)

	return &Result{
		Content: chat.Content,
		Metadata: Metadata{
			TemplateID:       req.TemplateID,
			TemplateVersion:  resolved.ResolvedVersion,
			GeneratedAt:      time.Now().UTC(),
			ResponsesSummary: summarizeResponses(req.Responses),
			ContextDegraded:  degraded,
			SnippetsUsed:     assembled.SnippetsUsed,
			SnippetsDropped:  assembled.DroppedSnippets,
			Model:            chat.ModelUsed,
			TotalTokens:      chat.TotalTokens,
		},
	}, nil
}

// retrieve fetches reference context; any failure degrades to an empty set.
func (p *Pipeline) retrieve(ctx context.Context, query string, log *slog.Logger) (snippets []retrieval.Snippet, degraded bool) {
	if p.retriever == nil {
		return nil, true
	}
	snippets, err := p.retriever.Search(ctx, query, p.cfg.TopK)
	if err != nil {
		log.Warn("reference retrieval failed, continuing without context", "error", err)
		return nil, true
	}
	return snippets, false
}

// salientKeys are the response fields that make the best retrieval queries
// when present.
var salientKeys = []string{"customer-name", "project-name", "industry"}

// buildQuery derives the retrieval query from the most salient response
// fields, falling back to a generic summary of all answers.
func buildQuery(responses map[string]any) string {
	var parts []string
	for _, key := range salientKeys {
		if v, ok := responses[key]; ok {
			if s := schema.RenderAnswer(v); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	// Generic fallback: key/value summary in sorted key order so the query
	// is deterministic for a given response set.
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := schema.RenderAnswer(responses[k]); s != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", k, s))
		}
	}
	return truncate(strings.Join(parts, "\n"), 512)
}

// summarizeResponses counts response keys and truthy values.
func summarizeResponses(responses map[string]any) ResponsesSummary {
	summary := ResponsesSummary{Sections: len(responses)}
	for _, v := range responses {
		if isTruthy(v) {
			summary.CompletedFields++
		}
	}
	return summary
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}

// structuredOutputDeclared reports whether the template declares its
// generated output as JSON.
func structuredOutputDeclared(c store.Content) bool {
	raw, ok := c.Extra["outputFormat"]
	if !ok {
		return false
	}
	return strings.Trim(string(raw), `"`) == "json"
}

// classifyModelError maps a model invocation failure to the taxonomy.
// The parent context distinguishes caller cancellation from our deadline.
func classifyModelError(parent context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		// Caller went away; propagate the cancellation untouched.
		return parent.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, "model invocation timed out", err)
	default:
		return apperr.Wrap(apperr.KindUnavailable, "model invocation failed", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
