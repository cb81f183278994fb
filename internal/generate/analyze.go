package generate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
)

// analyzeSystemPrompt instructs the model to emit a structured design-review
// document from a meeting transcript.
const analyzeSystemPrompt = `You are an expert MongoDB solutions architect creating a design review document.
Analyze the provided transcript and return a JSON object describing the review with these keys:
  "title": document title,
  "executiveSummary": brief overview,
  "architectureOverview": system architecture notes,
  "findings": array of key findings,
  "recommendations": array of specific, actionable recommendations,
  "nextSteps": array of follow-up items.
Use proper MongoDB terminology and keep recommendations specific and actionable.`

// Analysis is the structured review extracted from a transcript.
type Analysis struct {
	Document json.RawMessage `json:"document"`
	Model    string          `json:"model,omitempty"`
}

// Analyze turns a free-form transcript into a structured design-review
// document. The model is asked for JSON; malformed structure is reported as
// a model-output error, distinct from transport failures.
func (p *Pipeline) Analyze(ctx context.Context, transcript string) (*Analysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, apperr.New(apperr.KindValidation, "transcript is required")
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	chat, err := p.llm.Chat(modelCtx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: analyzeSystemPrompt},
			{Role: providers.RoleUser, Content: transcript},
		},
		JSONOutput: true,
		RequestID:  uuid.NewString(),
	})
	if err != nil {
		return nil, classifyModelError(ctx, err)
	}

	if chat.ParsedJSON == nil {
		return nil, apperr.New(apperr.KindModelOutput,
			"model returned malformed structured output").WithDetails(truncate(chat.Content, 200))
	}

	return &Analysis{Document: chat.ParsedJSON, Model: chat.ModelUsed}, nil
}
