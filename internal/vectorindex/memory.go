package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force inner product
// search, with a simple binary file format for persistence.
type MemoryIndex struct {
	dimensions int
	records    []Record
	byChunkID  map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		records:    make([]Record, 0),
		byChunkID:  make(map[string]int),
	}, nil
}

// Upsert inserts records, replacing any existing record with the same chunk ID.
func (m *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(r.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, r.Vector)
		r.Vector = vec
		if pos, ok := m.byChunkID[r.ChunkID]; ok {
			m.records[pos] = r
			continue
		}
		m.byChunkID[r.ChunkID] = len(m.records)
		m.records = append(m.records, r)
	}
	return nil
}

// Search returns the top-k records by inner product (cosine similarity for
// normalized vectors). Fewer than k hits come back when the index is small.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.records) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(m.records))
	for i, r := range m.records {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * r.Vector[j])
		}
		hits[i] = Hit{ChunkID: r.ChunkID, DocumentID: r.DocumentID, Seq: r.Seq, Score: dot}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// DeleteByDocument removes every record belonging to documentID.
func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if r.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	m.records = kept
	m.byChunkID = make(map[string]int, len(kept))
	for i, r := range kept {
		m.byChunkID[r.ChunkID] = i
	}
	return nil
}

// Size returns the number of records in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (4), n (4), then per record: chunkID len (4) + bytes,
// documentID len (4) + bytes, seq (4), vector (dimensions*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.records))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, r := range m.records {
		if err := writeString(f, r.ChunkID); err != nil {
			return fmt.Errorf("write chunk id: %w", err)
		}
		if err := writeString(f, r.DocumentID); err != nil {
			return fmt.Errorf("write document id: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(r.Seq)); err != nil {
			return fmt.Errorf("write seq: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(r.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// A missing file is not an error; the index stays empty.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]Record, 0, n)
	m.byChunkID = make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		chunkID, err := readString(f)
		if err != nil {
			return fmt.Errorf("read chunk id: %w", err)
		}
		documentID, err := readString(f)
		if err != nil {
			return fmt.Errorf("read document id: %w", err)
		}
		var seq uint32
		if err := binary.Read(f, binary.LittleEndian, &seq); err != nil {
			return fmt.Errorf("read seq: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		m.byChunkID[chunkID] = len(m.records)
		m.records = append(m.records, Record{
			ChunkID:    chunkID,
			DocumentID: documentID,
			Seq:        int(seq),
			Vector:     bytesToFloat32Slice(buf),
		})
	}
	return nil
}

// Close is a no-op for the memory index.
func (m *MemoryIndex) Close() error {
	return nil
}

func writeString(f *os.File, s string) error {
	b := []byte(s)
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

func readString(f *os.File) (string, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
