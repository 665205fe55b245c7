// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/blob"
	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/pipeline"
	"github.com/kotae-ai/kotae/internal/query"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/tasks"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	store        *store.SQLiteStore
	blobs        blob.Store
	pipeline     *pipeline.Pipeline
	queue        *tasks.Queue
	orchestrator *query.Orchestrator
	index        vectorindex.Index
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st *store.SQLiteStore,
	blobs blob.Store,
	p *pipeline.Pipeline,
	q *tasks.Queue,
	orch *query.Orchestrator,
	idx vectorindex.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:        st,
		blobs:        blobs,
		pipeline:     p,
		queue:        q,
		orchestrator: orch,
		index:        idx,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUploadDocument)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/download", s.handleDownloadDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/documents/{id}/resubmit", s.handleResubmitDocument)
		r.Post("/query/retrieve", s.handleRetrieve)
		r.Post("/query/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
