package embedding

import "strings"

// Tokenizer converts text into fixed-length model inputs.
type Tokenizer interface {
	// Tokenize returns input IDs, attention mask and token type IDs,
	// each of length maxTokens.
	Tokenize(text string, maxTokens int) ([]int64, []int64, []int64)
}

// SimpleTokenizer is a whitespace tokenizer with hashed vocabulary IDs.
// A proper WordPiece tokenizer would improve quality; this keeps the
// local model path dependency-free.
type SimpleTokenizer struct{}

const (
	tokenCLS = 101
	tokenSEP = 102
	// Hashed token IDs start above the special token range.
	tokenBase = 1000
)

func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) ([]int64, []int64, []int64) {
	words := strings.Fields(strings.ToLower(text))

	inputIDs := make([]int64, maxTokens)
	attentionMask := make([]int64, maxTokens)
	tokenTypeIDs := make([]int64, maxTokens)

	pos := 0
	inputIDs[pos] = tokenCLS
	attentionMask[pos] = 1
	pos++

	for _, w := range words {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(tokenBase + HashString(w))
		attentionMask[pos] = 1
		pos++
	}

	inputIDs[pos] = tokenSEP
	attentionMask[pos] = 1

	return inputIDs, attentionMask, tokenTypeIDs
}
