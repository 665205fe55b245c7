package models

import "fmt"

// RetrievalCandidate is a transient chunk candidate produced by initial
// recall and carried through hydration and reranking. It is never persisted.
type RetrievalCandidate struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Seq         int     `json:"seq"`
	Text        string  `json:"text"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
	Reranked    bool    `json:"reranked"`
}

// Answer is the result of the ask operation: the generated text plus the
// ordered chunk identities that were placed in the prompt context.
type Answer struct {
	Text            string   `json:"text"`
	ContextChunkIDs []string `json:"context_chunk_ids"`
	Query           string   `json:"query"`
}

// RetrieveRequest is a retrieval-only query. TopK and TopN fall back to
// configured defaults when zero.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	TopN  int    `json:"top_n,omitempty"`
}

// Validate checks the request and normalizes TopK/TopN against the given
// defaults. Returns an error for an empty query or inconsistent bounds.
func (r *RetrieveRequest) Validate(defaultTopK, defaultTopN int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if r.TopN <= 0 {
		r.TopN = defaultTopN
	}
	if r.TopN > r.TopK {
		return fmt.Errorf("top_n (%d) cannot exceed top_k (%d)", r.TopN, r.TopK)
	}
	return nil
}

// AskRequest is a full ask-and-generate query.
type AskRequest struct {
	Query string `json:"query"`
}

// Validate returns an error for an empty query.
func (r *AskRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}
