package retrieval

import (
	"context"
	"sync"
)

// MockRetriever is a Retriever for testing with configurable results
// and failure injection. It records every query it receives.
type MockRetriever struct {
	Snippets []Snippet
	Err      error

	mu          sync.Mutex
	queries     []string
	searchCalls int
}

var _ Retriever = (*MockRetriever)(nil)

// Search implements Retriever.
func (m *MockRetriever) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.searchCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := m.Snippets
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Queries returns the queries seen so far.
func (m *MockRetriever) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// Calls returns the number of Search invocations.
func (m *MockRetriever) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}
