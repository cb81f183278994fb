// Package retrieval defines the reference-context retrieval contract and a
// Weaviate-backed implementation. The core treats retrieval as an external
// capability behind a narrow query interface; the index and embedding
// mechanics live elsewhere.
package retrieval

import "context"

// Snippet is one ranked reference excerpt.
type Snippet struct {
	Content  string  `json:"content"`
	SourceID string  `json:"sourceId"`
	Score    float64 `json:"score"` // relevance in [0,1]
}

// Retriever returns up to k snippets relevant to the query, ordered by
// descending score. An empty knowledge base yields an empty slice, not an
// error. May return fewer than k results.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}
