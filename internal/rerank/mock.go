package rerank

import (
	"context"
	"strings"
)

// MockReranker scores texts by query token overlap. Deterministic and good
// enough for tests to distinguish relevant from irrelevant candidates.
type MockReranker struct{}

// NewMockReranker returns a mock reranker.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Rerank scores each text by the fraction of query tokens it contains.
func (r *MockReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	queryTokens := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(texts))
	for i, text := range texts {
		if len(queryTokens) == 0 {
			continue
		}
		lower := strings.ToLower(text)
		matched := 0
		for _, tok := range queryTokens {
			if strings.Contains(lower, tok) {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTokens))
	}
	return scores, nil
}

// Close is a no-op.
func (r *MockReranker) Close() error {
	return nil
}
