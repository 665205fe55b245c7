package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kotae-ai/kotae/internal/models"
)

func TestWriteCandidatesJSON(t *testing.T) {
	candidates := []*models.RetrievalCandidate{
		{ChunkID: "c1", DocumentID: "d1", Seq: 0, Text: "first chunk", Similarity: 0.9},
	}
	var buf bytes.Buffer
	if err := WriteCandidates(&buf, candidates, OutputJSON); err != nil {
		t.Fatalf("WriteCandidates(json): %v", err)
	}
	var decoded []*models.RetrievalCandidate
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 || decoded[0].ChunkID != "c1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteCandidatesText(t *testing.T) {
	candidates := []*models.RetrievalCandidate{
		{ChunkID: "c1", DocumentID: "d1", Seq: 2, Text: "multi\nline   text", RerankScore: 0.7, Reranked: true},
	}
	var buf bytes.Buffer
	if err := WriteCandidates(&buf, candidates, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "rerank 0.7000") {
		t.Errorf("missing rerank score: %s", out)
	}
	if !strings.Contains(out, "multi line text") {
		t.Errorf("newlines not flattened: %s", out)
	}
	if !strings.Contains(out, "doc d1, chunk 2") {
		t.Errorf("missing provenance: %s", out)
	}

	buf.Reset()
	if err := WriteCandidates(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results.") {
		t.Errorf("empty list output = %q", buf.String())
	}
}

func TestWriteAnswer(t *testing.T) {
	answer := &models.Answer{Text: "The answer.", ContextChunkIDs: []string{"c1", "c2"}, Query: "q"}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "The answer.") || !strings.Contains(buf.String(), "2 context chunk(s)") {
		t.Errorf("answer output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteAnswer(&buf, answer, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Text != answer.Text {
		t.Errorf("decoded text = %q", decoded.Text)
	}
}

func TestWriteStatus(t *testing.T) {
	status := &Status{
		Documents:         3,
		DocumentsByStatus: map[string]int{"completed": 2, "failed": 1},
		Chunks:            10,
		VectorIndexSize:   10,
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "documents:          3") || !strings.Contains(out, "failed:") {
		t.Errorf("status output = %q", out)
	}
	if strings.Contains(out, "received:") {
		t.Errorf("zero-count status should be omitted: %q", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if f, err := ParseOutputFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("ParseOutputFormat(json) = %v, %v", f, err)
	}
}
