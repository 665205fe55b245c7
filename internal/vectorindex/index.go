// Package vectorindex provides the vector index adapter used for semantic
// recall over chunk embeddings.
package vectorindex

import "context"

// Record is one chunk embedding plus the metadata recall needs.
type Record struct {
	ChunkID    string
	DocumentID string
	Seq        int
	Vector     []float32
}

// Hit is a single similarity search result.
type Hit struct {
	ChunkID    string
	DocumentID string
	Seq        int
	// Score is the inner product (cosine similarity for normalized vectors).
	Score float64
}

// Index defines vector storage and similarity search. Upsert replaces any
// existing record with the same chunk ID, so re-ingesting the same document
// never duplicates entries.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	Size() int
	Save(path string) error
	Load(path string) error
	Close() error
}
