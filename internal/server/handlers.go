package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/parser"
)

const maxUploadBytes = 64 << 20

// handleUploadDocument accepts a multipart upload, stores the raw bytes
// and the document row, and submits it for asynchronous ingestion.
// Responds 202: ingestion outcome is observed via document status.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !supportedExtension(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "unsupported file type: "+filepath.Ext(header.Filename))
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(content) > maxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	doc := &models.SourceDocument{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(header.Filename),
		StorageKey: "uploads/" + uuid.NewString(),
	}
	if owner := r.FormValue("owner_ref"); owner != "" {
		doc.OwnerRef = &owner
	}
	if err := s.blobs.Put(doc.StorageKey, content); err != nil {
		s.logger.Error("blob write failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		s.logger.Error("document create failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to create document")
		return
	}
	s.queue.Submit(doc.ID)
	s.logger.Debug("document accepted",
		zap.String("id", doc.ID), zap.String("filename", doc.Filename))
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     doc.ID,
		"status": string(doc.Status),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	status := models.DocumentStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown status: "+string(status))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := s.store.ListDocuments(r.Context(), status, limit, offset)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.SourceDocument{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handleDownloadDocument streams back the original bytes as uploaded,
// before any parsing or chunking.
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	content, err := s.blobs.Get(doc.StorageKey)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Warn("download write failed", zap.String("doc_id", doc.ID), zap.Error(err))
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleResubmitDocument restarts a failed document from the beginning.
func (s *Server) handleResubmitDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.pipeline.Resubmit(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
		} else {
			s.respondError(w, http.StatusConflict, err.Error())
		}
		return
	}
	s.queue.Submit(id)
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(models.StatusReceived),
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	candidates, err := s.orchestrator.Retrieve(r.Context(), &req)
	if err != nil {
		s.respondQueryErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"query":      req.Query,
		"candidates": candidates,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.orchestrator.Ask(r.Context(), &req)
	if err != nil {
		s.respondQueryErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docs, byStatus, chunks, err := s.store.Counts(r.Context())
	if err != nil {
		s.logger.Error("status counts failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"documents":           docs,
		"documents_by_status": byStatus,
		"chunks":              chunks,
		"vector_index_size":   s.index.Size(),
		"pending_ingestions":  s.queue.Pending(),
		"config": map[string]any{
			"chunk_size":        s.config.Chunking.ChunkSize,
			"chunk_overlap":     s.config.Chunking.ChunkOverlap,
			"initial_top_k":     s.config.Retrieval.TopK,
			"final_top_n":       s.config.Retrieval.TopN,
			"vector_index_type": s.config.VectorIndex.Type,
			"embedding_type":    s.config.Embedding.Type,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondErr maps domain sentinels onto HTTP status codes.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrLeaseHeld):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondQueryErr additionally distinguishes validation problems and
// upstream generation outages.
func (s *Server) respondQueryErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrGeneration):
		s.respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, models.ErrEmbedding), errors.Is(err, models.ErrIndex):
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		// Remaining errors come from request validation.
		s.respondError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func supportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range parser.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
