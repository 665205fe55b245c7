// Package cli provides output formatting for the kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/pkg/utils"
)

// OutputFormat selects how command output is rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteCandidates writes retrieval candidates to w in the given format.
func WriteCandidates(w io.Writer, candidates []*models.RetrievalCandidate, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, c := range candidates {
		score := c.Similarity
		label := "similarity"
		if c.Reranked {
			score = c.RerankScore
			label = "rerank"
		}
		fmt.Fprintf(w, "%d. [%s %.4f] %s\n", i+1, label, score,
			utils.Truncate(flatten(c.Text), 160))
		fmt.Fprintf(w, "   doc %s, chunk %d\n", c.DocumentID, c.Seq)
	}
	return nil
}

// WriteAnswer writes a generated answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	fmt.Fprintln(w, answer.Text)
	if len(answer.ContextChunkIDs) > 0 {
		fmt.Fprintf(w, "\n# answered from %d context chunk(s)\n", len(answer.ContextChunkIDs))
	}
	return nil
}

// Status is the collection summary shown by "kotae status".
type Status struct {
	Documents         int            `json:"documents"`
	DocumentsByStatus map[string]int `json:"documents_by_status,omitempty"`
	Chunks            int            `json:"chunks"`
	VectorIndexSize   int            `json:"vector_index_size"`
	PendingIngestions int            `json:"pending_ingestions"`
	Config            map[string]any `json:"config,omitempty"`
}

// WriteStatus writes the collection summary to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "documents:          %d\n", status.Documents)
	for _, s := range models.AllStatuses() {
		if n := status.DocumentsByStatus[string(s)]; n > 0 {
			fmt.Fprintf(w, "  %-17s %d\n", string(s)+":", n)
		}
	}
	fmt.Fprintf(w, "chunks:             %d\n", status.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d\n", status.VectorIndexSize)
	fmt.Fprintf(w, "pending_ingestions: %d\n", status.PendingIngestions)
	return nil
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
