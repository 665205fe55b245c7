// Package embedding wraps the external embedding capability behind a
// narrow gateway contract.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces fixed-dimension vector embeddings for text. Embed must
// be deterministic for identical input; vectors are unit-normalized so the
// vector index can treat inner product as cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Config selects and configures an embedder implementation.
type Config struct {
	// Type is "http", "onnx", or "mock".
	Type string
	// BaseURL, Model and TimeoutSeconds configure the HTTP gateway.
	BaseURL        string
	Model          string
	TimeoutSeconds int
	// ModelPath and MaxTokens configure the local ONNX embedder.
	ModelPath string
	MaxTokens int
	// Dimensions is the embedding dimension D.
	Dimensions int
	// CacheSize bounds the LRU embedding cache (0 disables it).
	CacheSize int
}

// New creates an embedder per cfg.Type, wrapped in an LRU cache when
// CacheSize is positive.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Type {
	case "http", "":
		e = NewHTTPEmbedder(HTTPConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			Dimensions:     cfg.Dimensions,
		})
	case "onnx":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedder type: %s (supported: http, onnx, mock)", cfg.Type)
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
