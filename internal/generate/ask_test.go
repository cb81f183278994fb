package generate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
)

func TestAsk(t *testing.T) {
	t.Run("empty question rejected", func(t *testing.T) {
		p := New(store.NewMemory(), nil, providers.NewMockClient(), Config{}, nil)
		_, err := p.Ask(context.Background(), "   ")
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("answer carries sources", func(t *testing.T) {
		retriever := &retrieval.MockRetriever{
			Snippets: []retrieval.Snippet{
				{Content: "Shard keys should be immutable.", SourceID: "docs/sharding", Score: 0.85},
			},
		}
		llm := &providers.MockClient{ResponseText: "Pick a high-cardinality shard key."}
		p := New(store.NewMemory(), retriever, llm, Config{}, nil)

		answer, err := p.Ask(context.Background(), "How do I pick a shard key?")
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if answer.Answer != "Pick a high-cardinality shard key." {
			t.Errorf("answer = %q", answer.Answer)
		}
		if len(answer.Sources) != 1 || answer.Sources[0].SourceID != "docs/sharding" {
			t.Errorf("sources = %+v", answer.Sources)
		}
		if answer.Degraded {
			t.Error("answer should not be degraded on retrieval success")
		}

		// The question itself is the retrieval query.
		if q := retriever.Queries(); len(q) != 1 || q[0] != "How do I pick a shard key?" {
			t.Errorf("queries = %v", q)
		}
	})

	t.Run("retrieval failure degrades", func(t *testing.T) {
		retriever := &retrieval.MockRetriever{Err: errors.New("down")}
		llm := providers.NewMockClient()
		p := New(store.NewMemory(), retriever, llm, Config{}, nil)

		answer, err := p.Ask(context.Background(), "What about indexes?")
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if !answer.Degraded {
			t.Error("expected degraded answer")
		}
		if len(answer.Sources) != 0 {
			t.Errorf("expected no sources, got %+v", answer.Sources)
		}
		if llm.Requests() != 1 {
			t.Error("model should still answer without context")
		}
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("empty transcript rejected", func(t *testing.T) {
		p := New(store.NewMemory(), nil, providers.NewMockClient(), Config{}, nil)
		_, err := p.Analyze(context.Background(), "")
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("structured document returned", func(t *testing.T) {
		doc := json.RawMessage(`{"title":"Review","findings":["no shard key"]}`)
		llm := &providers.MockClient{ResponseJSON: doc}
		p := New(store.NewMemory(), nil, llm, Config{}, nil)

		analysis, err := p.Analyze(context.Background(), "We discussed the product catalog service...")
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}

		var parsed struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(analysis.Document, &parsed); err != nil {
			t.Fatalf("document is not valid JSON: %v", err)
		}
		if parsed.Title != "Review" {
			t.Errorf("title = %q, want Review", parsed.Title)
		}
	})

	t.Run("malformed model JSON is a model-output error", func(t *testing.T) {
		llm := &providers.MockClient{ResponseJSON: json.RawMessage(`not json at all`)}
		p := New(store.NewMemory(), nil, llm, Config{}, nil)

		_, err := p.Analyze(context.Background(), "transcript")
		if apperr.KindOf(err) != apperr.KindModelOutput {
			t.Errorf("expected model-output error, got %v", err)
		}
	})
}
