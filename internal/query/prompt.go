package query

import (
	"fmt"
	"strings"

	"github.com/kotae-ai/kotae/internal/models"
)

const promptHeader = `You are a helpful assistant. Answer the question using only the context below. If the context does not contain the answer, say that you do not know.`

const promptNoContext = `No supporting context was found in the document collection.`

// BuildPrompt renders the deterministic generation prompt: instruction
// header, numbered context blocks separated by "---", then the question.
// The same query and candidate set always produce the same prompt.
func BuildPrompt(query string, candidates []*models.RetrievalCandidate) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nContext:\n")

	if len(candidates) == 0 {
		b.WriteString(promptNoContext)
		b.WriteString("\n")
	} else {
		for i, c := range candidates {
			if i > 0 {
				b.WriteString("---\n")
			}
			fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Text)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
