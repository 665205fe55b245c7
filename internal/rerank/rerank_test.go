package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kotae-ai/kotae/internal/models"
)

func TestMockRerankerScoring(t *testing.T) {
	r := NewMockReranker()
	scores, err := r.Rerank(context.Background(), "tokyo weather", []string{
		"the weather in tokyo is mild",
		"stock prices rose today",
		"tokyo is the capital of japan",
	})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0] <= scores[1] {
		t.Errorf("relevant text should outscore irrelevant: %f vs %f", scores[0], scores[1])
	}
	if scores[0] <= scores[2] {
		t.Errorf("full-match text should outscore partial match: %f vs %f", scores[0], scores[2])
	}
}

func TestHTTPReranker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Return results out of order to exercise index mapping.
		results := make([]rerankResult, len(req.Texts))
		for i := range req.Texts {
			results[len(req.Texts)-1-i] = rerankResult{Index: i, Score: float64(i) * 0.5}
		}
		json.NewEncoder(w).Encode(results)
	}))
	defer srv.Close()

	r := NewHTTPReranker(HTTPConfig{BaseURL: srv.URL})
	scores, err := r.Rerank(context.Background(), "query", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	want := []float64{0, 0.5, 1.0}
	for i, s := range scores {
		if s != want[i] {
			t.Errorf("score[%d] = %f, want %f", i, s, want[i])
		}
	}
}

func TestHTTPRerankerEmpty(t *testing.T) {
	r := NewHTTPReranker(HTTPConfig{BaseURL: "http://unreachable.invalid"})
	scores, err := r.Rerank(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("empty input should not hit the network: %v", err)
	}
	if scores != nil {
		t.Errorf("expected nil scores for empty input")
	}
}

func TestHTTPRerankerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPReranker(HTTPConfig{BaseURL: srv.URL})
	_, err := r.Rerank(context.Background(), "query", []string{"a"})
	if !errors.Is(err, models.ErrRerank) {
		t.Errorf("expected ErrRerank, got %v", err)
	}
}

func TestHTTPRerankerScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]rerankResult{{Index: 0, Score: 1}})
	}))
	defer srv.Close()

	r := NewHTTPReranker(HTTPConfig{BaseURL: srv.URL})
	_, err := r.Rerank(context.Background(), "query", []string{"a", "b"})
	if !errors.Is(err, models.ErrRerank) {
		t.Errorf("expected ErrRerank for count mismatch, got %v", err)
	}
}

func TestNewNoneType(t *testing.T) {
	r, err := New(Config{Type: "none"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r != nil {
		t.Error("type none should return a nil reranker")
	}
}
