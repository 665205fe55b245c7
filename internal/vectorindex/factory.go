package vectorindex

import (
	"fmt"
	"time"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search with file
	// persistence. Good for small corpora (<100k chunks).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeQdrant uses a Qdrant server over its REST API.
	IndexTypeQdrant IndexType = "qdrant"
)

// Config configures the vector index factory.
type Config struct {
	// Type is "memory" (default) or "qdrant".
	Type       string
	Dimensions int
	// Qdrant settings.
	URL            string
	APIKey         string
	Collection     string
	TimeoutSeconds int
}

// New creates a vector index of the configured type.
func New(cfg Config) (Index, error) {
	switch IndexType(cfg.Type) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(cfg.Dimensions)
	case IndexTypeQdrant:
		return NewQdrantIndex(QdrantConfig{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, qdrant)", cfg.Type)
	}
}
