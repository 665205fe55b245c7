// Package splitter turns parsed text into ordered, overlapping chunks.
package splitter

import "fmt"

// Piece is one chunk of text with its rune span in the original text
// (end exclusive). Consecutive pieces overlap by at most the configured
// overlap; trimming that overlap and concatenating reproduces the input.
type Piece struct {
	Text  string
	Start int
	End   int
}

// Splitter splits text recursively on a prioritized list of separators:
// paragraph breaks, line breaks, sentence punctuation, whitespace, and
// finally a hard character cut. Sizes are measured in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// separatorTiers are tried in order. Within a tier any of the listed
// separators splits; the separator stays attached to the preceding segment
// so reassembly is lossless.
var separatorTiers = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// New returns a splitter. chunkSize must be positive and
// 0 <= chunkOverlap < chunkSize.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split is pure and deterministic: the same text and configuration always
// produce the same pieces. Empty text yields no pieces.
func (s *Splitter) Split(text string) []Piece {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	segs := s.segment(runes, 0, len(runes), 0)
	return s.assemble(runes, segs)
}

// span is a half-open rune range produced by segmentation. Segments are
// contiguous and each fits within the chunk size.
type span struct {
	start, end int
}

// segment recursively cuts runes[start:end) into segments no longer than
// the chunk size, descending a separator tier whenever a candidate is
// still too long. The last resort is a hard cut, which always makes
// progress, so recursion terminates.
func (s *Splitter) segment(runes []rune, start, end, tier int) []span {
	if end-start <= s.chunkSize {
		return []span{{start, end}}
	}
	if tier >= len(separatorTiers) {
		return hardCut(start, end, s.chunkSize)
	}
	parts := splitKeep(runes, start, end, separatorTiers[tier])
	if len(parts) == 1 {
		// Tier made no progress; fall through to the next one.
		return s.segment(runes, start, end, tier+1)
	}
	var segs []span
	for _, p := range parts {
		if p.end-p.start <= s.chunkSize {
			segs = append(segs, p)
		} else {
			segs = append(segs, s.segment(runes, p.start, p.end, tier+1)...)
		}
	}
	return segs
}

// splitKeep splits runes[start:end) on any separator in seps, keeping the
// separator attached to the preceding part.
func splitKeep(runes []rune, start, end int, seps []string) []span {
	var parts []span
	partStart := start
	i := start
	for i < end {
		matched := 0
		for _, sep := range seps {
			if n := matchAt(runes, i, end, sep); n > 0 {
				matched = n
				break
			}
		}
		if matched > 0 {
			parts = append(parts, span{partStart, i + matched})
			i += matched
			partStart = i
			continue
		}
		i++
	}
	if partStart < end {
		parts = append(parts, span{partStart, end})
	}
	if parts == nil {
		parts = []span{{start, end}}
	}
	return parts
}

// matchAt returns the rune length of sep if it occurs at position i, else 0.
func matchAt(runes []rune, i, end int, sep string) int {
	n := 0
	for _, r := range sep {
		if i+n >= end || runes[i+n] != r {
			return 0
		}
		n++
	}
	return n
}

// hardCut slices [start, end) into chunk-size segments.
func hardCut(start, end, size int) []span {
	var segs []span
	for s := start; s < end; s += size {
		e := s + size
		if e > end {
			e = end
		}
		segs = append(segs, span{s, e})
	}
	return segs
}

// assemble greedily merges adjacent segments into chunks of at most the
// chunk size, carrying up to chunkOverlap trailing runes of the previous
// chunk forward as a prefix of the next one when the content fits.
func (s *Splitter) assemble(runes []rune, segs []span) []Piece {
	var pieces []Piece
	i := 0
	for i < len(segs) {
		start := segs[i].start
		if len(pieces) > 0 {
			prev := pieces[len(pieces)-1]
			ov := s.chunkOverlap
			if prevLen := prev.End - prev.Start; ov > prevLen {
				ov = prevLen
			}
			segLen := segs[i].end - segs[i].start
			if ov+segLen > s.chunkSize {
				ov = s.chunkSize - segLen
			}
			start = segs[i].start - ov
		}
		end := segs[i].end
		i++
		for i < len(segs) && segs[i].end-start <= s.chunkSize {
			end = segs[i].end
			i++
		}
		pieces = append(pieces, Piece{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
	}
	return pieces
}
