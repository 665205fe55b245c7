package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/kotae-ai/kotae/internal/models"
)

// Defaults for the HTTP reranking gateway (TEI-compatible API).
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

// HTTPConfig configures the HTTP reranking gateway.
type HTTPConfig struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// HTTPReranker calls a text-embeddings-inference style /rerank endpoint.
type HTTPReranker struct {
	client  *http.Client
	baseURL string
	model   string
}

type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// The endpoint returns one result per text, unordered by index guarantee,
// so results are mapped back by Index.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewHTTPReranker creates the gateway, applying defaults for unset fields.
func NewHTTPReranker(cfg HTTPConfig) *HTTPReranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &HTTPReranker{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Rerank scores texts against query. Scores align with the texts slice.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", models.ErrRerank, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", models.ErrRerank, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRerank, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrRerank, resp.StatusCode, msg)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrRerank, err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: got %d scores for %d texts", models.ErrRerank, len(results), len(texts))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	scores := make([]float64, len(texts))
	for i, res := range results {
		if res.Index < 0 || res.Index >= len(texts) || res.Index != i {
			return nil, fmt.Errorf("%w: result index %d out of range", models.ErrRerank, res.Index)
		}
		scores[i] = res.Score
	}
	return scores, nil
}

// Close is a no-op.
func (r *HTTPReranker) Close() error {
	return nil
}
