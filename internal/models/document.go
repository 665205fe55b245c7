// Package models defines core data structures for documents, chunks, and answers.
package models

import "time"

// DocumentStatus is the processing state of a source document.
type DocumentStatus string

// Pipeline states, in order. Failed is terminal and reachable from any
// non-terminal state; a failed document must be resubmitted to restart
// from StatusReceived.
const (
	StatusReceived     DocumentStatus = "received"
	StatusParsing      DocumentStatus = "parsing"
	StatusChunking     DocumentStatus = "chunking"
	StatusChunksStored DocumentStatus = "chunks_stored"
	StatusEmbedding    DocumentStatus = "embedding"
	StatusIndexed      DocumentStatus = "indexed"
	StatusCompleted    DocumentStatus = "completed"
	StatusFailed       DocumentStatus = "failed"
)

// statusRank orders the pipeline states so transitions can be checked
// for monotonicity. Failed is not ranked; it is reachable from anywhere.
var statusRank = map[DocumentStatus]int{
	StatusReceived:     0,
	StatusParsing:      1,
	StatusChunking:     2,
	StatusChunksStored: 3,
	StatusEmbedding:    4,
	StatusIndexed:      5,
	StatusCompleted:    6,
}

// AllStatuses returns every status in pipeline order, failed last.
func AllStatuses() []DocumentStatus {
	return []DocumentStatus{
		StatusReceived, StatusParsing, StatusChunking, StatusChunksStored,
		StatusEmbedding, StatusIndexed, StatusCompleted, StatusFailed,
	}
}

// Valid reports whether s is a known status.
func (s DocumentStatus) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s is a terminal state (completed or failed).
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// pipeline transition: strictly forward along the stage order, or to
// failed from any non-terminal state. Resubmission (failed -> received)
// is also allowed.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if next == StatusFailed {
		return !s.Terminal()
	}
	if s == StatusFailed {
		return next == StatusReceived
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// SourceDocument is an uploaded document tracked through the ingestion
// pipeline. StorageKey is an opaque key into the raw file store. OwnerRef
// is a pure annotation; the pipeline never requires it.
type SourceDocument struct {
	ID              string         `json:"id" db:"id"`
	Filename        string         `json:"filename" db:"filename"`
	StorageKey      string         `json:"storage_key" db:"storage_key"`
	Status          DocumentStatus `json:"status" db:"status"`
	FailedStage     string         `json:"failed_stage,omitempty" db:"failed_stage"`
	ErrorMessage    string         `json:"error_message,omitempty" db:"error_message"`
	OwnerRef        *string        `json:"owner_ref,omitempty" db:"owner_ref"`
	NumChunks       int            `json:"num_chunks" db:"num_chunks"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	StatusUpdatedAt time.Time      `json:"status_updated_at" db:"status_updated_at"`
}

// TextChunk is the unit of embedding and retrieval: a bounded span of a
// document's parsed text. Seq is 0-based and gapless within a document;
// SpanStart/SpanEnd are rune offsets into the parsed text (end exclusive).
type TextChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Seq        int       `json:"seq" db:"seq"`
	Text       string    `json:"text" db:"text"`
	SpanStart  int       `json:"span_start" db:"span_start"`
	SpanEnd    int       `json:"span_end" db:"span_end"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
