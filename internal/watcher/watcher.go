// Package watcher ingests documents dropped into watched directories,
// using fsnotify with per-path debouncing.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/blob"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/parser"
	"github.com/kotae-ai/kotae/internal/pipeline"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/tasks"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher turns file drops into document submissions. Each watched file
// maps to a stable document ID derived from its absolute path, so an
// updated file replaces its previous document and a removed file deletes
// it.
type Watcher struct {
	roots      []string
	extensions map[string]bool
	store      *store.SQLiteStore
	blobs      blob.Store
	pipeline   *pipeline.Pipeline
	queue      *tasks.Queue
	debounce   time.Duration

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// New creates a watcher over roots. Only files with supported parser
// extensions are ingested.
func New(roots []string, st *store.SQLiteStore, blobs blob.Store, p *pipeline.Pipeline,
	q *tasks.Queue, logger *zap.Logger) *Watcher {
	exts := make(map[string]bool)
	for _, ext := range parser.SupportedExtensions() {
		exts[ext] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		roots:       roots,
		extensions:  exts,
		store:       st,
		blobs:       blobs,
		pipeline:    p,
		queue:       q,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start begins watching and ingests files already present in the roots.
// Runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher starting", zap.Strings("roots", w.roots))
	for _, root := range w.roots {
		if err := w.addRoot(root); err != nil {
			w.Stop()
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// addRoot watches root and its subdirectories and picks up existing files.
func (w *Watcher) addRoot(root string) error {
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		if w.matchExtension(path) {
			w.debounceIngest(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			// Newly created directory: watch it too.
			_ = w.watcher.Add(path)
			return
		}
		if w.matchExtension(path) {
			w.debounceIngest(path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.matchExtension(path) {
			w.removeFile(path)
		}
	}
}

func (w *Watcher) matchExtension(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// debounceIngest delays ingestion until writes to the file settle.
func (w *Watcher) debounceIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingestFile(path)
	})
}

// ingestFile replaces any previous document for path and submits a fresh
// one. Completed documents are terminal, so an updated file becomes a new
// document under the same derived ID.
func (w *Watcher) ingestFile(path string) {
	ctx := context.Background()
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("watcher failed to read file", zap.String("path", path), zap.Error(err))
		return
	}

	docID := DocumentID(path)
	if err := w.pipeline.Delete(ctx, docID); err != nil && !errors.Is(err, models.ErrNotFound) {
		w.logger.Warn("watcher failed to replace document", zap.String("path", path), zap.Error(err))
		return
	}

	storageKey := "watch/" + docID
	if err := w.blobs.Put(storageKey, content); err != nil {
		w.logger.Warn("watcher failed to store file", zap.String("path", path), zap.Error(err))
		return
	}
	doc := &models.SourceDocument{
		ID:         docID,
		Filename:   filepath.Base(path),
		StorageKey: storageKey,
	}
	if err := w.store.CreateDocument(ctx, doc); err != nil {
		w.logger.Warn("watcher failed to create document", zap.String("path", path), zap.Error(err))
		return
	}
	w.queue.Submit(docID)
	w.logger.Info("watcher submitted document",
		zap.String("path", path), zap.String("document_id", docID))
}

func (w *Watcher) removeFile(path string) {
	docID := DocumentID(path)
	err := w.pipeline.Delete(context.Background(), docID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		w.logger.Warn("watcher failed to delete document", zap.String("path", path), zap.Error(err))
		return
	}
	if err == nil {
		w.logger.Info("watcher deleted document",
			zap.String("path", path), zap.String("document_id", docID))
	}
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, t := range w.debounceMap {
			t.Stop()
		}
		w.debounceMap = make(map[string]*time.Timer)
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
	})
}

// DocumentID derives the stable document ID for a watched file path.
func DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String()
}
