package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/blob"
	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/generate"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/parser"
	"github.com/kotae-ai/kotae/internal/pipeline"
	"github.com/kotae-ai/kotae/internal/query"
	"github.com/kotae-ai/kotae/internal/rerank"
	"github.com/kotae-ai/kotae/internal/splitter"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/tasks"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

type testServer struct {
	srv *Server
	ts  *httptest.Server
	gen *generate.MockGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	base := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(base, "meta.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blob.NewFileStore(filepath.Join(base, "blobs"))
	if err != nil {
		t.Fatalf("blobs: %v", err)
	}
	emb := embedding.NewMockEmbedder(16)
	idx, err := vectorindex.NewMemoryIndex(emb.Dimensions())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	sp, err := splitter.New(64, 8)
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}
	p := pipeline.New(st, blobs, parser.New(), sp, emb, idx, time.Minute, zap.NewNop())
	q := tasks.New(p, tasks.Config{Workers: 1, Backoff: time.Millisecond}, zap.NewNop())
	t.Cleanup(q.Stop)

	gen := generate.NewMockGenerator()
	orch := query.New(emb, idx, st, rerank.NewMockReranker(), gen,
		query.Config{TopK: 10, TopN: 3}, zap.NewNop())

	cfg := config.Default(base)
	srv := NewServer(st, blobs, p, q, orch, idx, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{srv: srv, ts: ts, gen: gen}
}

func (s *testServer) upload(t *testing.T, filename string, content []byte) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(content)
	mw.Close()

	resp, err := http.Post(s.ts.URL+"/api/v1/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if out.Status != string(models.StatusReceived) {
		t.Errorf("upload status field = %q", out.Status)
	}
	return out.ID
}

func (s *testServer) waitCompleted(t *testing.T, docID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := s.srv.store.GetDocument(context.Background(), docID)
		if err == nil && doc.Status.Terminal() {
			if doc.Status != models.StatusCompleted {
				t.Fatalf("document settled as %s (%s: %s)", doc.Status, doc.FailedStage, doc.ErrorMessage)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("document never completed")
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestUploadAndLifecycle(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "notes.txt", []byte("Tokyo weather is mild in spring. Osaka has great food."))
	s.waitCompleted(t, docID)

	resp, err := http.Get(s.ts.URL + "/api/v1/documents/" + docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var doc models.SourceDocument
	json.NewDecoder(resp.Body).Decode(&doc)
	if doc.Status != models.StatusCompleted || doc.NumChunks == 0 {
		t.Errorf("document = %+v", doc)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "binary.exe")
	fw.Write([]byte("junk"))
	mw.Close()

	resp, err := http.Post(s.ts.URL+"/api/v1/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/api/v1/documents/no-such-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadDocument(t *testing.T) {
	s := newTestServer(t)
	content := []byte("Original upload bytes, verbatim.")
	docID := s.upload(t, "orig.txt", content)

	resp, err := http.Get(s.ts.URL + "/api/v1/documents/" + docID + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("body = %q, want %q", got, content)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "orig.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	missing, err := http.Get(s.ts.URL + "/api/v1/documents/no-such-id/download")
	if err != nil {
		t.Fatalf("download missing: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing download = %d, want 404", missing.StatusCode)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "a.txt", []byte("Some listable content."))
	s.waitCompleted(t, docID)

	resp, err := http.Get(s.ts.URL + "/api/v1/documents?status=completed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Documents []*models.SourceDocument `json:"documents"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Documents) != 1 || out.Documents[0].ID != docID {
		t.Errorf("list = %+v", out.Documents)
	}

	bad, err := http.Get(s.ts.URL + "/api/v1/documents?status=bogus")
	if err != nil {
		t.Fatalf("list with bogus status: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", bad.StatusCode)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "a.txt", []byte("Content to delete."))
	s.waitCompleted(t, docID)

	req, _ := http.NewRequest(http.MethodDelete, s.ts.URL+"/api/v1/documents/"+docID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	again, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", again.StatusCode)
	}
}

func TestResubmitOnlyFailedDocuments(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "a.txt", []byte("Completed content."))
	s.waitCompleted(t, docID)

	resp := postJSON(t, s.ts.URL+"/api/v1/documents/"+docID+"/resubmit", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("resubmit of completed document = %d, want 409", resp.StatusCode)
	}

	missing := postJSON(t, s.ts.URL+"/api/v1/documents/none/resubmit", nil)
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("resubmit of missing document = %d, want 404", missing.StatusCode)
	}
}

func TestRetrieveEndpoint(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "facts.txt", []byte("Tokyo weather is mild. Stock markets fell. Cats sleep a lot."))
	s.waitCompleted(t, docID)

	resp := postJSON(t, s.ts.URL+"/api/v1/query/retrieve", map[string]any{
		"query": "Tokyo weather", "top_k": 5, "top_n": 2,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retrieve status = %d", resp.StatusCode)
	}
	var out struct {
		Query      string                       `json:"query"`
		Candidates []*models.RetrievalCandidate `json:"candidates"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Query != "Tokyo weather" {
		t.Errorf("query echo = %q", out.Query)
	}
	if len(out.Candidates) == 0 || len(out.Candidates) > 2 {
		t.Errorf("candidate count = %d, want 1..2", len(out.Candidates))
	}

	bad := postJSON(t, s.ts.URL+"/api/v1/query/retrieve", map[string]any{"query": ""})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query = %d, want 400", bad.StatusCode)
	}
}

func TestAskEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.gen.Response = "Mild."
	docID := s.upload(t, "facts.txt", []byte("Tokyo weather is mild in spring."))
	s.waitCompleted(t, docID)

	resp := postJSON(t, s.ts.URL+"/api/v1/query/ask", map[string]any{"query": "How is Tokyo weather?"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	var ans models.Answer
	json.NewDecoder(resp.Body).Decode(&ans)
	if ans.Text != "Mild." || len(ans.ContextChunkIDs) == 0 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAskGenerationOutageIs502(t *testing.T) {
	s := newTestServer(t)
	s.gen.Err = fmt.Errorf("llm offline: %w", models.ErrGeneration)

	resp := postJSON(t, s.ts.URL+"/api/v1/query/ask", map[string]any{"query": "anything"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	docID := s.upload(t, "a.txt", []byte("Some content for counting."))
	s.waitCompleted(t, docID)

	resp, err := http.Get(s.ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Documents       int            `json:"documents"`
		Chunks          int            `json:"chunks"`
		VectorIndexSize int            `json:"vector_index_size"`
		Config          map[string]any `json:"config"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Documents != 1 || out.Chunks == 0 || out.VectorIndexSize != out.Chunks {
		t.Errorf("status = %+v", out)
	}
	if out.Config["chunk_size"] == nil {
		t.Error("config echo missing")
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
}
