// Package pipeline drives a source document through the ingestion state
// machine, from raw bytes to indexed chunk embeddings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/blob"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/parser"
	"github.com/kotae-ai/kotae/internal/splitter"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/vectorindex"
	"github.com/kotae-ai/kotae/pkg/utils"
)

// Failure stages recorded on documents.
const (
	StageParsing   = "parsing"
	StageChunking  = "chunking"
	StageEmbedding = "embedding"
)

// Pipeline executes ingestion for one document at a time per document,
// guarded by the store lease.
type Pipeline struct {
	store    *store.SQLiteStore
	blobs    blob.Store
	parser   *parser.Parser
	splitter *splitter.Splitter
	embedder embedding.Embedder
	index    vectorindex.Index
	holder   string
	leaseTTL time.Duration
	logger   *zap.Logger
}

// New creates a pipeline. The holder identity is generated per process so
// lease conflicts identify the competing worker.
func New(st *store.SQLiteStore, blobs blob.Store, p *parser.Parser, sp *splitter.Splitter,
	emb embedding.Embedder, idx vectorindex.Index, leaseTTL time.Duration, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:    st,
		blobs:    blobs,
		parser:   p,
		splitter: sp,
		embedder: emb,
		index:    idx,
		holder:   "pipeline-" + uuid.NewString(),
		leaseTTL: leaseTTL,
		logger:   logger,
	}
}

// Run processes the document end to end. Re-running a completed document is
// a no-op; a failed document must be resubmitted first. Stage failures are
// recorded on the document and returned.
func (p *Pipeline) Run(ctx context.Context, docID string) error {
	if err := p.store.AcquireLease(ctx, docID, p.holder, p.leaseTTL); err != nil {
		return err
	}
	defer p.store.ReleaseLease(context.WithoutCancel(ctx), docID, p.holder)

	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	switch doc.Status {
	case models.StatusCompleted:
		p.logger.Debug("document already completed", zap.String("document_id", docID))
		return nil
	case models.StatusFailed:
		return fmt.Errorf("document %s is failed at stage %s; resubmit to retry", docID, doc.FailedStage)
	}

	p.logger.Info("ingestion started",
		zap.String("document_id", docID),
		zap.String("filename", doc.Filename))

	if err := p.advance(ctx, docID, models.StatusParsing); err != nil {
		return err
	}
	content, err := p.blobs.Get(doc.StorageKey)
	if err != nil {
		return p.fail(ctx, docID, StageParsing, fmt.Errorf("fetch raw bytes: %w", err))
	}
	text, err := p.parser.Parse(content, doc.Filename)
	if err != nil {
		return p.fail(ctx, docID, StageParsing, err)
	}

	if err := p.advance(ctx, docID, models.StatusChunking); err != nil {
		return err
	}
	// Whitespace-only text carries nothing retrievable; treat it like an
	// empty document instead of indexing blank chunks.
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	pieces := p.splitter.Split(text)

	chunks := make([]*models.TextChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.TextChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Seq:        i,
			Text:       piece.Text,
			SpanStart:  piece.Start,
			SpanEnd:    piece.End,
		}
	}
	if err := p.store.ReplaceChunks(ctx, docID, chunks); err != nil {
		return p.fail(ctx, docID, StageChunking, fmt.Errorf("%w: store chunks: %v", models.ErrChunking, err))
	}
	if err := p.advance(ctx, docID, models.StatusChunksStored); err != nil {
		return err
	}

	// A document whose parsed text yields no chunks completes with nothing
	// indexed rather than failing.
	if len(chunks) == 0 {
		if err := p.index.DeleteByDocument(ctx, docID); err != nil {
			return p.fail(ctx, docID, StageEmbedding, err)
		}
		if err := p.advance(ctx, docID, models.StatusCompleted); err != nil {
			return err
		}
		p.logger.Info("ingestion completed with no chunks", zap.String("document_id", docID))
		return nil
	}

	if err := p.advance(ctx, docID, models.StatusEmbedding); err != nil {
		return err
	}
	if err := p.embedAndIndex(ctx, docID, chunks); err != nil {
		// Drop any vectors written so the document is never partially
		// retrievable. Chunks stay stored for inspection.
		if derr := p.index.DeleteByDocument(context.WithoutCancel(ctx), docID); derr != nil {
			p.logger.Warn("failed to remove vectors after embedding failure",
				zap.String("document_id", docID), zap.Error(derr))
		}
		return p.fail(ctx, docID, StageEmbedding, err)
	}
	if err := p.advance(ctx, docID, models.StatusIndexed); err != nil {
		return err
	}

	if err := p.advance(ctx, docID, models.StatusCompleted); err != nil {
		return err
	}
	p.logger.Info("ingestion completed",
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)))
	return nil
}

func (p *Pipeline) embedAndIndex(ctx context.Context, docID string, chunks []*models.TextChunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", models.ErrEmbedding, len(vectors), len(chunks))
	}
	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
			Vector:     vectors[i],
		}
	}
	return p.index.Upsert(ctx, records)
}

// Resubmit moves a failed document back to received so Run can retry it.
func (p *Pipeline) Resubmit(ctx context.Context, docID string) error {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status != models.StatusFailed {
		return fmt.Errorf("document %s is %s, only failed documents can be resubmitted", docID, doc.Status)
	}
	return p.store.UpdateStatus(ctx, docID, models.StatusReceived)
}

// Delete removes the document entirely: vectors first so nothing dangling
// is retrievable, then the metadata row (chunks cascade), then the blob.
// Works from any state, including mid-ingestion failures.
func (p *Pipeline) Delete(ctx context.Context, docID string) error {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := p.index.DeleteByDocument(ctx, docID); err != nil {
		return err
	}
	if err := p.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := p.blobs.Delete(doc.StorageKey); err != nil && !errors.Is(err, models.ErrNotFound) {
		p.logger.Warn("failed to delete raw file",
			zap.String("document_id", docID),
			zap.String("storage_key", doc.StorageKey),
			zap.Error(err))
	}
	p.logger.Info("document deleted", zap.String("document_id", docID))
	return nil
}

// advance moves the document forward to next, skipping states it already
// passed so interrupted runs can resume.
func (p *Pipeline) advance(ctx context.Context, docID string, next models.DocumentStatus) error {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status == models.StatusFailed {
		return fmt.Errorf("document %s failed mid-run", docID)
	}
	if !doc.Status.CanTransitionTo(next) {
		// Already at or past next; an interrupted run resumes here.
		return nil
	}
	return p.store.UpdateStatus(ctx, docID, next)
}

func (p *Pipeline) fail(ctx context.Context, docID, stage string, cause error) error {
	p.logger.Warn("ingestion failed",
		zap.String("document_id", docID),
		zap.String("stage", stage),
		zap.Error(cause))
	msg := utils.Truncate(cause.Error(), 1024)
	if err := p.store.MarkFailed(context.WithoutCancel(ctx), docID, stage, msg); err != nil {
		p.logger.Error("failed to record failure", zap.String("document_id", docID), zap.Error(err))
	}
	return cause
}
