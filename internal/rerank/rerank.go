// Package rerank wraps the external reranking capability. Reranking is a
// quality refinement: callers that see it fail fall back to recall order.
package rerank

import (
	"context"
	"fmt"
)

// Reranker scores candidate texts against a query. Scores come back in the
// same order as texts; higher means more relevant.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
	Close() error
}

// Config selects and configures a reranker implementation.
type Config struct {
	// Type is "http", "mock" or "none".
	Type string
	// BaseURL, Model and TimeoutSeconds configure the HTTP gateway.
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// New creates a reranker per cfg.Type. Type "none" returns nil: retrieval
// treats a nil reranker as recall-order only.
func New(cfg Config) (Reranker, error) {
	switch cfg.Type {
	case "http", "":
		return NewHTTPReranker(HTTPConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	case "mock":
		return NewMockReranker(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown reranker type: %s (supported: http, mock, none)", cfg.Type)
	}
}
