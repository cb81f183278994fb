package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
)

// askSystemPrompt frames retrieval-grounded Q&A answers.
const askSystemPrompt = `You are a MongoDB database design and architecture expert. Analyze the user's question using the provided context from MongoDB documentation and provide a clear, detailed response.

Consider:
- Schema design and modeling best practices
- Indexing strategies
- Query patterns and performance
- Data consistency and integrity
- Scaling considerations
- Security best practices`

// Answer is the result of a retrieval-grounded question.
type Answer struct {
	Answer   string              `json:"answer"`
	Sources  []retrieval.Snippet `json:"sources,omitempty"`
	Degraded bool                `json:"contextDegraded,omitempty"`
}

// Ask answers a free-form question grounded in retrieved reference context.
// Like Generate, a retrieval failure degrades rather than fails.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperr.New(apperr.KindValidation, "question is required")
	}

	requestID := uuid.NewString()
	log := p.logger.With("request_id", requestID)

	snippets, degraded := p.retrieve(ctx, question, log)

	system := askSystemPrompt
	if len(snippets) > 0 {
		system += "\n\nContext from MongoDB Documentation:\n" + formatAskContext(snippets)
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	chat, err := p.llm.Chat(modelCtx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system},
			{Role: providers.RoleUser, Content: question},
		},
		RequestID: requestID,
	})
	if err != nil {
		return nil, classifyModelError(ctx, err)
	}

	log.Info("question answered", "snippets", len(snippets), "context_degraded", degraded,
		"total_tokens", chat.TotalTokens, "latency", chat.ExecutionTime)

	return &Answer{Answer: chat.Content, Sources: snippets, Degraded: degraded}, nil
}

// formatAskContext renders snippets as numbered context entries.
func formatAskContext(snippets []retrieval.Snippet) string {
	var b strings.Builder
	for i, s := range snippets {
		source := s.SourceID
		if source == "" {
			source = "Unknown"
		}
		fmt.Fprintf(&b, "Document %d (Relevance: %.2f)\nSource: %s\nContent: %s\n\n", i+1, s.Score, source, s.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
