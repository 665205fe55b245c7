package models

import "errors"

// Error kinds for the ingestion and query paths. Callers wrap these with
// fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	// ErrParse marks unreadable or unsupported document content.
	ErrParse = errors.New("parse error")
	// ErrChunking marks a splitter failure; should not occur for
	// well-formed text and is treated as a defect when it does.
	ErrChunking = errors.New("chunking error")
	// ErrEmbedding marks an embedding gateway failure or timeout.
	ErrEmbedding = errors.New("embedding error")
	// ErrIndex marks a vector index failure.
	ErrIndex = errors.New("vector index error")
	// ErrRerank marks a reranking gateway failure. The query path degrades
	// to initial-recall order instead of failing on this.
	ErrRerank = errors.New("rerank error")
	// ErrGeneration marks a generation gateway failure or timeout. Fatal
	// to the ask operation; there is no fallback answer.
	ErrGeneration = errors.New("generation error")
	// ErrNotFound marks a missing document or chunk reference.
	ErrNotFound = errors.New("not found")
	// ErrLeaseHeld is returned when an ingestion execution is already
	// in flight for the document.
	ErrLeaseHeld = errors.New("ingestion lease already held")
)
