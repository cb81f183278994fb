package generate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
)

func seedTemplate(t *testing.T, st store.Store, mut func(*store.CreateInput)) *store.Template {
	t.Helper()
	in := store.CreateInput{
		Name:        "Design Review",
		Description: "Standard review",
		Content: store.Content{
			Sections: []store.Section{
				{
					ID:    "overview",
					Title: "Overview",
					Questions: []store.Question{
						{ID: "customer-name", Label: "Customer", Type: "text", PromptContext: "Identify the customer."},
						{ID: "workload", Label: "Workload", Type: "textarea", PromptContext: "Assess the workload shape."},
					},
				},
			},
			GlobalPromptContext: "You are reviewing a MongoDB application.",
		},
	}
	if mut != nil {
		mut(&in)
	}
	tmpl, err := st.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tmpl
}

func testResponses() map[string]any {
	return map[string]any{
		"customer-name": "Acme Corp",
		"workload":      "Read-heavy product catalog",
	}
}

func TestGenerateValidation(t *testing.T) {
	st := store.NewMemory()
	retriever := &retrieval.MockRetriever{}
	llm := providers.NewMockClient()
	p := New(st, retriever, llm, Config{}, nil)

	t.Run("empty responses rejected before any external call", func(t *testing.T) {
		_, err := p.Generate(context.Background(), Request{TemplateID: "template-x", Responses: map[string]any{}})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
		if retriever.Calls() != 0 {
			t.Error("retriever should not be called for invalid requests")
		}
		if llm.Requests() != 0 {
			t.Error("model should not be called for invalid requests")
		}
	})

	t.Run("missing templateId rejected", func(t *testing.T) {
		_, err := p.Generate(context.Background(), Request{Responses: testResponses()})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown template is not-found, not internal", func(t *testing.T) {
		_, err := p.Generate(context.Background(), Request{TemplateID: "template-missing", Responses: testResponses()})
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestGenerateSuccess(t *testing.T) {
	st := store.NewMemory()
	tmpl := seedTemplate(t, st, nil)
	retriever := &retrieval.MockRetriever{
		Snippets: []retrieval.Snippet{
			{Content: "Use compound indexes.", SourceID: "docs/indexes", Score: 0.9},
		},
	}
	llm := &providers.MockClient{ResponseText: "# Design Review\n\nFindings..."}
	p := New(st, retriever, llm, Config{}, nil)

	result, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Content != "# Design Review\n\nFindings..." {
		t.Errorf("content = %q", result.Content)
	}
	md := result.Metadata
	if md.TemplateID != tmpl.TemplateID {
		t.Errorf("metadata.templateId = %q, want %q", md.TemplateID, tmpl.TemplateID)
	}
	if md.TemplateVersion != "1.0.0" {
		t.Errorf("metadata.templateVersion = %q, want 1.0.0", md.TemplateVersion)
	}
	if md.ContextDegraded {
		t.Error("context should not be degraded on retrieval success")
	}
	if md.SnippetsUsed != 1 {
		t.Errorf("snippetsUsed = %d, want 1", md.SnippetsUsed)
	}
	if md.ResponsesSummary.Sections != 2 || md.ResponsesSummary.CompletedFields != 2 {
		t.Errorf("responsesSummary = %+v", md.ResponsesSummary)
	}
	if md.GeneratedAt.IsZero() {
		t.Error("generatedAt not set")
	}

	// Salient fields drive the retrieval query.
	queries := retriever.Queries()
	if len(queries) != 1 || queries[0] != "Acme Corp" {
		t.Errorf("retrieval queries = %v, want [Acme Corp]", queries)
	}
}

func TestGenerateVersionPinning(t *testing.T) {
	st := store.NewMemory()
	tmpl := seedTemplate(t, st, nil)

	content := tmpl.Versions[0].Content.Clone()
	content.GlobalPromptContext = "Second revision."
	if _, err := st.Update(context.Background(), tmpl.TemplateID, store.UpdateInput{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	p := New(st, nil, providers.NewMockClient(), Config{}, nil)
	result, err := p.Generate(context.Background(), Request{
		TemplateID: tmpl.TemplateID,
		Version:    "1.0.0",
		Responses:  testResponses(),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Metadata.TemplateVersion != "1.0.0" {
		t.Errorf("templateVersion = %q, want pinned 1.0.0", result.Metadata.TemplateVersion)
	}

	_, err = p.Generate(context.Background(), Request{
		TemplateID: tmpl.TemplateID,
		Version:    "8.0.0",
		Responses:  testResponses(),
	})
	if apperr.KindOf(err) != apperr.KindVersionNotFound {
		t.Errorf("expected version-not-found error, got %v", err)
	}
}

func TestGenerateDegradedRetrieval(t *testing.T) {
	t.Run("retriever error degrades instead of failing", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, nil)
		retriever := &retrieval.MockRetriever{Err: errors.New("connection refused")}
		llm := providers.NewMockClient()
		p := New(st, retriever, llm, Config{}, nil)

		result, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !result.Metadata.ContextDegraded {
			t.Error("expected contextDegraded to be set")
		}
		if result.Metadata.SnippetsUsed != 0 {
			t.Errorf("snippetsUsed = %d, want 0", result.Metadata.SnippetsUsed)
		}
		if llm.Requests() != 1 {
			t.Error("model should still be invoked when retrieval fails")
		}
	})

	t.Run("nil retriever always degrades", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, nil)
		p := New(st, nil, providers.NewMockClient(), Config{}, nil)

		result, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !result.Metadata.ContextDegraded {
			t.Error("expected contextDegraded with nil retriever")
		}
	})
}

func TestGenerateModelFailures(t *testing.T) {
	t.Run("timeout classified", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, nil)
		llm := &providers.MockClient{Latency: 200 * time.Millisecond, ResponseText: "late"}
		p := New(st, nil, llm, Config{ModelTimeout: 10 * time.Millisecond}, nil)

		_, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if apperr.KindOf(err) != apperr.KindTimeout {
			t.Errorf("expected timeout error, got %v", err)
		}
	})

	t.Run("caller cancellation propagates untouched", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, nil)
		llm := &providers.MockClient{Latency: time.Second}
		p := New(st, nil, llm, Config{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := p.Generate(ctx, Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("transport failure is unavailable", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, nil)
		llm := &providers.MockClient{ShouldFail: true}
		p := New(st, nil, llm, Config{}, nil)

		_, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if apperr.KindOf(err) != apperr.KindUnavailable {
			t.Errorf("expected unavailable error, got %v", err)
		}
	})
}

func TestGenerateStructuredOutput(t *testing.T) {
	withJSONOutput := func(in *store.CreateInput) {
		in.Content.Extra = map[string]json.RawMessage{
			"outputFormat": json.RawMessage(`"json"`),
		}
	}

	t.Run("valid structured output passes through", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, withJSONOutput)
		llm := &providers.MockClient{ResponseJSON: json.RawMessage(`{"title":"Review"}`)}
		p := New(st, nil, llm, Config{}, nil)

		result, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.Content != `{"title":"Review"}` {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("malformed structured output is a model-output error", func(t *testing.T) {
		st := store.NewMemory()
		tmpl := seedTemplate(t, st, withJSONOutput)
		llm := &providers.MockClient{ResponseJSON: json.RawMessage(`{"title": truncated`)}
		p := New(st, nil, llm, Config{}, nil)

		_, err := p.Generate(context.Background(), Request{TemplateID: tmpl.TemplateID, Responses: testResponses()})
		if apperr.KindOf(err) != apperr.KindModelOutput {
			t.Errorf("expected model-output error, got %v", err)
		}
	})
}

func TestBuildQuery(t *testing.T) {
	t.Run("salient fields joined in priority order", func(t *testing.T) {
		got := buildQuery(map[string]any{
			"industry":      "retail",
			"customer-name": "Acme Corp",
			"other":         "ignored",
		})
		if got != "Acme Corp retail" {
			t.Errorf("buildQuery() = %q, want %q", got, "Acme Corp retail")
		}
	})

	t.Run("fallback is deterministic and bounded", func(t *testing.T) {
		responses := map[string]any{"b-field": "beta", "a-field": "alpha"}
		got := buildQuery(responses)
		want := "a-field: alpha\nb-field: beta"
		if got != want {
			t.Errorf("buildQuery() = %q, want %q", got, want)
		}

		long := map[string]any{"answer": strings.Repeat("x", 2000)}
		if q := buildQuery(long); len(q) > 512 {
			t.Errorf("fallback query length %d exceeds 512", len(q))
		}
	})
}

func TestSummarizeResponses(t *testing.T) {
	got := summarizeResponses(map[string]any{
		"a": "answered",
		"b": "",
		"c": false,
		"d": 0.0,
		"e": true,
		"f": nil,
	})
	if got.Sections != 6 {
		t.Errorf("sections = %d, want 6", got.Sections)
	}
	if got.CompletedFields != 2 {
		t.Errorf("completedFields = %d, want 2", got.CompletedFields)
	}
}
