package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kotae-ai/kotae/internal/models"
)

// QdrantIndex is a minimal REST client to a Qdrant server. The collection
// is created with cosine distance on first use if missing.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	dimensions int
	client     *http.Client
}

// QdrantConfig configures the Qdrant index.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// NewQdrantIndex creates the client and ensures the collection exists.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "chunks"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	q := &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}
	// Qdrant returns 200 for an existing collection with the same schema.
	err := q.do(context.Background(), http.MethodPut,
		fmt.Sprintf("/collections/%s", q.collection),
		map[string]any{
			"vectors": map[string]any{
				"size":     cfg.Dimensions,
				"distance": "Cosine",
			},
		}, nil)
	if err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return q, nil
}

// Upsert writes records as points keyed by chunk ID, replacing existing ones.
func (q *QdrantIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Vector) != q.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(r.Vector), q.dimensions)
		}
		points[i] = map[string]any{
			"id":     pointID(r.ChunkID),
			"vector": r.Vector,
			"payload": map[string]any{
				"chunk_id":    r.ChunkID,
				"document_id": r.DocumentID,
				"seq":         r.Seq,
			},
		}
	}
	return q.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", q.collection),
		map[string]any{"points": points}, nil)
}

// Search returns the top-k points by cosine similarity.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != q.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", q.collection),
		map[string]any{
			"vector":       query,
			"limit":        k,
			"with_payload": true,
		}, &resp)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := Hit{Score: r.Score}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			hit.ChunkID = v
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Payload["seq"].(float64); ok {
			hit.Seq = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument removes all points whose payload matches documentID.
func (q *QdrantIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return q.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection),
		map[string]any{
			"filter": map[string]any{
				"must": []map[string]any{
					{"key": "document_id", "match": map[string]any{"value": documentID}},
				},
			},
		}, nil)
}

// Size returns the server-side point count, or 0 when unreachable.
func (q *QdrantIndex) Size() int {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	err := q.do(context.Background(), http.MethodGet,
		fmt.Sprintf("/collections/%s", q.collection), nil, &resp)
	if err != nil {
		return 0
	}
	return resp.Result.PointsCount
}

// Save is a no-op; Qdrant persists server-side.
func (q *QdrantIndex) Save(path string) error { return nil }

// Load is a no-op; Qdrant persists server-side.
func (q *QdrantIndex) Load(path string) error { return nil }

// Close is a no-op.
func (q *QdrantIndex) Close() error { return nil }

func (q *QdrantIndex) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", models.ErrIndex, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", models.ErrIndex, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndex, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s %s: status %d: %s", models.ErrIndex, method, path, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", models.ErrIndex, err)
		}
	}
	return nil
}

// pointID derives a stable UUID point ID from a chunk ID. Qdrant only
// accepts unsigned integers or UUIDs as point IDs.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
