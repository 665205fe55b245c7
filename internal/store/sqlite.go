// Package store provides the SQLite metadata store for documents, chunks
// and processing leases.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kotae-ai/kotae/internal/models"
)

// DefaultLeaseTTL bounds how long a crashed worker can hold a document.
const DefaultLeaseTTL = 10 * time.Minute

// SQLiteStore implements the metadata store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		status TEXT NOT NULL,
		failed_stage TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		owner_ref TEXT,
		num_chunks INTEGER NOT NULL DEFAULT 0,
		lease_holder TEXT NOT NULL DEFAULT '',
		lease_expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		status_updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
		UNIQUE (document_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a new document in StatusReceived.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *models.SourceDocument) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.StatusUpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.StatusReceived
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, storage_key, status, failed_stage, error_message, owner_ref, num_chunks, created_at, status_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.StorageKey, string(doc.Status), doc.FailedStage, doc.ErrorMessage,
		doc.OwnerRef, doc.NumChunks, doc.CreatedAt, doc.StatusUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument returns the document with the given ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.SourceDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, storage_key, status, failed_stage, error_message, owner_ref, num_chunks, created_at, status_updated_at
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns documents newest first. Pass an empty status to
// list all.
func (s *SQLiteStore) ListDocuments(ctx context.Context, status models.DocumentStatus, limit, offset int) ([]*models.SourceDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, filename, storage_key, status, failed_stage, error_message, owner_ref, num_chunks, created_at, status_updated_at
	          FROM documents`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.SourceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document and, via cascade, its chunks.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

// UpdateStatus moves the document to next, enforcing legal pipeline
// transitions. Moving to a state the document is already past fails.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, next models.DocumentStatus) error {
	if !next.Valid() {
		return fmt.Errorf("invalid status: %s", next)
	}
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !doc.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s for document %s", doc.Status, next, id)
	}

	set := `status = ?, status_updated_at = ?`
	args := []any{string(next), time.Now().UTC()}
	if next == models.StatusReceived {
		// Resubmission clears the failure record.
		set += `, failed_stage = '', error_message = ''`
	}
	args = append(args, id, string(doc.Status))
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET `+set+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("status of document %s changed concurrently", id)
	}
	return nil
}

// MarkFailed moves the document to StatusFailed recording the stage that
// failed and a reason.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id, stage, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, failed_stage = ?, error_message = ?, status_updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(models.StatusFailed), stage, reason, time.Now().UTC(),
		id, string(models.StatusCompleted), string(models.StatusFailed))
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s (or already terminal)", models.ErrNotFound, id)
	}
	return nil
}

// SetNumChunks records the chunk count on the document row.
func (s *SQLiteStore) SetNumChunks(ctx context.Context, id string, n int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET num_chunks = ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("failed to set chunk count: %w", err)
	}
	return nil
}

// ReplaceChunks atomically replaces all chunks of a document. Re-running
// ingestion therefore never leaves stale or duplicate chunks behind.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, documentID string, chunks []*models.TextChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range chunks {
		c.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, seq, text, span_start, span_end, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, documentID, c.Seq, c.Text, c.SpanStart, c.SpanEnd, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.Seq, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET num_chunks = ? WHERE id = ?`, len(chunks), documentID); err != nil {
		return fmt.Errorf("failed to update chunk count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// GetChunk returns a single chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.TextChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, seq, text, span_start, span_end, created_at FROM chunks WHERE id = ?`, id)
	return scanChunk(row)
}

// GetChunksByIDs returns the chunks that still exist for the given IDs.
// Missing IDs are silently dropped; callers treat them as dangling index
// entries.
func (s *SQLiteStore) GetChunksByIDs(ctx context.Context, ids []string) (map[string]*models.TextChunk, error) {
	if len(ids) == 0 {
		return map[string]*models.TextChunk{}, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, seq, text, span_start, span_end, created_at
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*models.TextChunk, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// GetChunksByDocument returns a document's chunks ordered by seq.
func (s *SQLiteStore) GetChunksByDocument(ctx context.Context, documentID string) ([]*models.TextChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, seq, text, span_start, span_end, created_at
		 FROM chunks WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.TextChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Counts returns total documents, documents by status, and total chunks.
func (s *SQLiteStore) Counts(ctx context.Context) (int, map[models.DocumentStatus]int, int, error) {
	byStatus := make(map[models.DocumentStatus]int)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()
	total := 0
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return 0, nil, 0, fmt.Errorf("failed to scan count: %w", err)
		}
		byStatus[models.DocumentStatus(status)] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return 0, nil, 0, err
	}

	var chunks int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, nil, 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return total, byStatus, chunks, nil
}

// AcquireLease takes the processing lease on a document for holder. A
// lease already held by another live holder returns ErrLeaseHeld; expired
// leases are stolen.
func (s *SQLiteStore) AcquireLease(ctx context.Context, documentID, holder string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET lease_holder = ?, lease_expires_at = ?
		 WHERE id = ? AND (lease_holder = '' OR lease_holder = ? OR lease_expires_at < ?)`,
		holder, now.Add(ttl), documentID, holder, now)
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Distinguish missing document from a held lease.
		if _, err := s.GetDocument(ctx, documentID); err != nil {
			return err
		}
		return fmt.Errorf("%w: document %s", models.ErrLeaseHeld, documentID)
	}
	return nil
}

// ReleaseLease drops the lease if holder still owns it.
func (s *SQLiteStore) ReleaseLease(ctx context.Context, documentID, holder string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET lease_holder = '', lease_expires_at = NULL
		 WHERE id = ? AND lease_holder = ?`, documentID, holder)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.SourceDocument, error) {
	var doc models.SourceDocument
	var status string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.StorageKey, &status, &doc.FailedStage,
		&doc.ErrorMessage, &doc.OwnerRef, &doc.NumChunks, &doc.CreatedAt, &doc.StatusUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

func scanChunk(row scanner) (*models.TextChunk, error) {
	var c models.TextChunk
	err := row.Scan(&c.ID, &c.DocumentID, &c.Seq, &c.Text, &c.SpanStart, &c.SpanEnd, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: chunk", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}
	return &c, nil
}
