// Package query orchestrates two-stage retrieval and question answering
// over the indexed corpus.
package query

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/generate"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/rerank"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

// Default retrieval bounds: a wide recall stage narrowed to a small
// context set.
const (
	DefaultTopK = 50
	DefaultTopN = 5
)

// Config tunes the orchestrator.
type Config struct {
	// TopK is the initial recall width, TopN the final context size.
	TopK int
	TopN int
	// EmbeddingInstruction, when set, is prepended to the query text
	// before embedding. Document chunks are embedded without it.
	EmbeddingInstruction string
}

// Orchestrator runs retrieval and ask operations. The reranker may be nil,
// in which case candidates keep initial recall order.
type Orchestrator struct {
	embedder  embedding.Embedder
	index     vectorindex.Index
	store     *store.SQLiteStore
	reranker  rerank.Reranker
	generator generate.Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates an orchestrator. Zero bounds fall back to the defaults.
func New(emb embedding.Embedder, idx vectorindex.Index, st *store.SQLiteStore,
	rr rerank.Reranker, gen generate.Generator, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		embedder:  emb,
		index:     idx,
		store:     st,
		reranker:  rr,
		generator: gen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Retrieve runs the two-stage retrieval: embed the query, recall topK
// candidates from the vector index, hydrate their texts, rerank, and return
// at most topN candidates best first. A reranking failure degrades to
// initial recall order instead of failing the query.
func (o *Orchestrator) Retrieve(ctx context.Context, req *models.RetrieveRequest) ([]*models.RetrievalCandidate, error) {
	if err := req.Validate(o.cfg.TopK, o.cfg.TopN); err != nil {
		return nil, err
	}

	queryText := req.Query
	if o.cfg.EmbeddingInstruction != "" {
		queryText = o.cfg.EmbeddingInstruction + req.Query
	}
	vec, err := o.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := o.index.Search(ctx, vec, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return []*models.RetrievalCandidate{}, nil
	}

	candidates, err := o.hydrate(ctx, hits)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*models.RetrievalCandidate{}, nil
	}

	o.rerankCandidates(ctx, req.Query, candidates)

	if len(candidates) > req.TopN {
		candidates = candidates[:req.TopN]
	}
	return candidates, nil
}

// hydrate resolves hit texts from the store. Hits whose chunk no longer
// exists are dropped; the index may briefly lag document deletion.
func (o *Orchestrator) hydrate(ctx context.Context, hits []vectorindex.Hit) ([]*models.RetrievalCandidate, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	chunks, err := o.store.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	candidates := make([]*models.RetrievalCandidate, 0, len(hits))
	for _, h := range hits {
		chunk, ok := chunks[h.ChunkID]
		if !ok {
			o.logger.Debug("dropping dangling index hit", zap.String("chunk_id", h.ChunkID))
			continue
		}
		candidates = append(candidates, &models.RetrievalCandidate{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Seq:        chunk.Seq,
			Text:       chunk.Text,
			Similarity: h.Score,
		})
	}
	return candidates, nil
}

// rerankCandidates scores and reorders candidates in place. On any
// reranker failure the initial recall order is kept.
func (o *Orchestrator) rerankCandidates(ctx context.Context, query string, candidates []*models.RetrievalCandidate) {
	if o.reranker == nil {
		return
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	scores, err := o.reranker.Rerank(ctx, query, texts)
	if err != nil || len(scores) != len(candidates) {
		o.logger.Warn("reranking failed, keeping recall order", zap.Error(err))
		return
	}
	for i, c := range candidates {
		c.RerankScore = scores[i]
		c.Reranked = true
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})
}

// Ask answers a question over the corpus: retrieve context, render the
// prompt, generate. Unlike reranking, a generation failure is fatal.
func (o *Orchestrator) Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	candidates, err := o.Retrieve(ctx, &models.RetrieveRequest{Query: req.Query})
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req.Query, candidates)
	text, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	chunkIDs := make([]string, len(candidates))
	for i, c := range candidates {
		chunkIDs[i] = c.ChunkID
	}
	return &models.Answer{
		Text:            text,
		ContextChunkIDs: chunkIDs,
		Query:           req.Query,
	}, nil
}
