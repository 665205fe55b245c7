package query

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/generate"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/rerank"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

type fixture struct {
	store *store.SQLiteStore
	index vectorindex.Index
	emb   embedding.Embedder
	gen   *generate.MockGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	emb := embedding.NewMockEmbedder(32)
	idx, err := vectorindex.NewMemoryIndex(emb.Dimensions())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return &fixture{store: st, index: idx, emb: emb, gen: generate.NewMockGenerator()}
}

func (f *fixture) orchestrator(t *testing.T, rr rerank.Reranker, cfg Config) *Orchestrator {
	t.Helper()
	return New(f.emb, f.index, f.store, rr, f.gen, cfg, zap.NewNop())
}

// ingest stores and indexes one chunk per text, all under one document.
func (f *fixture) ingest(t *testing.T, texts ...string) []*models.TextChunk {
	t.Helper()
	ctx := context.Background()
	doc := &models.SourceDocument{ID: uuid.NewString(), Filename: "f.txt", StorageKey: "k"}
	if err := f.store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	chunks := make([]*models.TextChunk, len(texts))
	records := make([]vectorindex.Record, len(texts))
	for i, text := range texts {
		chunks[i] = &models.TextChunk{
			ID: uuid.NewString(), DocumentID: doc.ID, Seq: i, Text: text,
			SpanStart: 0, SpanEnd: len(text),
		}
		vec, err := f.emb.Embed(ctx, text)
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		records[i] = vectorindex.Record{ChunkID: chunks[i].ID, DocumentID: doc.ID, Seq: i, Vector: vec}
	}
	if err := f.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		t.Fatalf("replace chunks: %v", err)
	}
	if err := f.index.Upsert(ctx, records); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return chunks
}

func TestRetrieveBounds(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "alpha", "beta", "gamma", "delta", "epsilon")
	o := f.orchestrator(t, nil, Config{TopK: 4, TopN: 2})

	got, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "alpha"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected topN=2 candidates, got %d", len(got))
	}
	// Without a reranker, candidates keep recall order: best similarity first.
	if got[0].Similarity < got[1].Similarity {
		t.Error("candidates not in similarity order")
	}
	if got[0].Reranked {
		t.Error("candidates should not be marked reranked without a reranker")
	}
}

func TestRetrieveExactQueryFindsItsChunk(t *testing.T) {
	f := newFixture(t)
	chunks := f.ingest(t, "the capital of france", "unrelated cooking recipe", "another filler text")
	o := f.orchestrator(t, nil, Config{TopK: 3, TopN: 1})

	// The mock embedder maps identical text to identical vectors, so the
	// exact chunk text is its own nearest neighbor.
	got, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "the capital of france"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != chunks[0].ID {
		t.Errorf("expected exact chunk, got %+v", got)
	}
}

func TestRetrieveRerankReorders(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "tokyo weather is mild today", "a text about nothing", "tokyo tower address")
	o := f.orchestrator(t, rerank.NewMockReranker(), Config{TopK: 3, TopN: 3})

	got, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "tokyo weather"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if !got[0].Reranked {
		t.Error("candidates should be marked reranked")
	}
	if !strings.Contains(got[0].Text, "weather") {
		t.Errorf("reranker should put the weather chunk first, got %q", got[0].Text)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].RerankScore < got[i].RerankScore {
			t.Error("candidates not sorted by rerank score")
		}
	}
}

type failingReranker struct{}

func (failingReranker) Rerank(ctx context.Context, q string, texts []string) ([]float64, error) {
	return nil, errors.New("reranker down")
}
func (failingReranker) Close() error { return nil }

func TestRetrieveDegradesWhenRerankFails(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "first", "second", "third")
	o := f.orchestrator(t, failingReranker{}, Config{TopK: 3, TopN: 2})

	got, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "first"})
	if err != nil {
		t.Fatalf("rerank failure must not fail retrieval: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.Reranked {
			t.Error("degraded candidates must not be marked reranked")
		}
	}
	if got[0].Similarity < got[1].Similarity {
		t.Error("degraded candidates must keep recall order")
	}
}

func TestRetrieveDropsDanglingHits(t *testing.T) {
	f := newFixture(t)
	chunks := f.ingest(t, "kept text", "doomed text")
	ctx := context.Background()

	// Simulate index lag: remove the chunk row but leave its vector.
	f.store.ReplaceChunks(ctx, chunks[0].DocumentID, chunks[:1])

	o := f.orchestrator(t, nil, Config{TopK: 10, TopN: 10})
	got, err := o.Retrieve(ctx, &models.RetrieveRequest{Query: "text"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != chunks[0].ID {
		t.Errorf("dangling hit should be dropped, got %+v", got)
	}
}

func TestRetrieveValidation(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, nil, Config{})

	if _, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: ""}); err == nil {
		t.Error("empty query should fail")
	}
	if _, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "q", TopK: 2, TopN: 5}); err == nil {
		t.Error("top_n > top_k should fail")
	}
}

func TestAskEmptyIndex(t *testing.T) {
	f := newFixture(t)
	f.gen.Response = "I do not know."
	o := f.orchestrator(t, nil, Config{})

	ans, err := o.Ask(context.Background(), &models.AskRequest{Query: "anything?"})
	if err != nil {
		t.Fatalf("Ask over empty index must succeed: %v", err)
	}
	if len(ans.ContextChunkIDs) != 0 {
		t.Errorf("expected no context chunks, got %v", ans.ContextChunkIDs)
	}
	if len(f.gen.Prompts) != 1 || !strings.Contains(f.gen.Prompts[0], promptNoContext) {
		t.Errorf("prompt should state that no context was found: %q", f.gen.Prompts)
	}
	if ans.Text != "I do not know." {
		t.Errorf("answer text = %q", ans.Text)
	}
}

func TestAskCarriesContextOrder(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "tokyo weather is mild", "filler one", "filler two")
	f.gen.Response = "It is mild."
	o := f.orchestrator(t, rerank.NewMockReranker(), Config{TopK: 3, TopN: 2})

	ans, err := o.Ask(context.Background(), &models.AskRequest{Query: "tokyo weather"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(ans.ContextChunkIDs) != 2 {
		t.Fatalf("expected 2 context chunks, got %d", len(ans.ContextChunkIDs))
	}
	if ans.Query != "tokyo weather" {
		t.Errorf("query not echoed: %q", ans.Query)
	}
	prompt := f.gen.Prompts[0]
	if !strings.Contains(prompt, "[1] ") || !strings.Contains(prompt, "---") {
		t.Errorf("prompt missing numbered blocks or separator:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: tokyo weather") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
}

func TestAskGenerationFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "some context")
	f.gen.Err = models.ErrGeneration
	o := f.orchestrator(t, nil, Config{})

	if _, err := o.Ask(context.Background(), &models.AskRequest{Query: "q"}); !errors.Is(err, models.ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	cands := []*models.RetrievalCandidate{
		{ChunkID: "a", Text: "first block"},
		{ChunkID: "b", Text: "second block"},
	}
	p1 := BuildPrompt("why?", cands)
	p2 := BuildPrompt("why?", cands)
	if p1 != p2 {
		t.Error("prompt rendering must be deterministic")
	}
	if !strings.Contains(p1, "[1] first block") || !strings.Contains(p1, "[2] second block") {
		t.Errorf("prompt blocks wrong:\n%s", p1)
	}
}

func TestRetrieveInstructionPrefixOnlyAffectsQuery(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "target chunk text", "other chunk")
	o := f.orchestrator(t, nil, Config{TopK: 2, TopN: 1, EmbeddingInstruction: "query: "})

	// With an instruction prefix the query vector differs from the raw
	// text vector, but retrieval still works end to end.
	got, err := o.Retrieve(context.Background(), &models.RetrieveRequest{Query: "target chunk text"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
}
