package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateConfig holds connection settings for the reference knowledge base.
type WeaviateConfig struct {
	Scheme    string // "http" or "https"
	Host      string // host:port
	ClassName string // Weaviate class holding reference documents

	// MaxAttempts bounds the per-search retry loop. The pipeline treats a
	// final failure as non-fatal, so this only smooths over blips.
	MaxAttempts uint
	RetryDelay  time.Duration

	Logger *slog.Logger
}

// WeaviateRetriever searches a Weaviate class with nearText semantic search.
type WeaviateRetriever struct {
	client      *weaviate.Client
	className   string
	maxAttempts uint
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ Retriever = (*WeaviateRetriever)(nil)

// NewWeaviateRetriever creates a retriever over the configured class.
func NewWeaviateRetriever(cfg WeaviateConfig) (*WeaviateRetriever, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.ClassName == "" {
		cfg.ClassName = "ReferenceDocument"
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := weaviate.NewClient(weaviate.Config{Scheme: cfg.Scheme, Host: cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	return &WeaviateRetriever{
		client:      client,
		className:   cfg.ClassName,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
	}, nil
}

// Search implements Retriever using nearText over the configured class.
// Certainty maps directly to the [0,1] relevance score.
func (r *WeaviateRetriever) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if query == "" || k <= 0 {
		return []Snippet{}, nil
	}

	var resp *models.GraphQLResponse
	err := retry.Do(
		func() error {
			nearText := r.client.GraphQL().NearTextArgBuilder().
				WithConcepts([]string{query})

			fields := []graphql.Field{
				{Name: "content"},
				{Name: "source"},
				{Name: "_additional { certainty }"},
			}

			result, err := r.client.GraphQL().Get().
				WithClassName(r.className).
				WithFields(fields...).
				WithNearText(nearText).
				WithLimit(k).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("weaviate search: %w", err)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
			}
			resp = result
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.maxAttempts),
		retry.Delay(r.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	snippets := r.parseResponse(resp)
	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if len(snippets) > k {
		snippets = snippets[:k]
	}

	r.logger.Debug("retrieved reference context", "query_len", len(query), "count", len(snippets))
	return snippets, nil
}

// parseResponse unwraps the GraphQL Get payload. Missing or empty classes
// yield an empty result, never an error.
func (r *WeaviateRetriever) parseResponse(resp *models.GraphQLResponse) []Snippet {
	snippets := []Snippet{}
	if resp == nil {
		return snippets
	}
	get, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return snippets
	}
	rows, ok := get[r.className].([]any)
	if !ok {
		return snippets
	}

	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		s := Snippet{}
		if content, ok := obj["content"].(string); ok {
			s.Content = content
		}
		if source, ok := obj["source"].(string); ok {
			s.SourceID = source
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if certainty, ok := add["certainty"].(float64); ok {
				s.Score = certainty
			}
		}
		if s.Content == "" {
			continue
		}
		snippets = append(snippets, s)
	}
	return snippets
}
