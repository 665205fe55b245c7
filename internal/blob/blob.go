// Package blob stores raw uploaded files keyed by an opaque storage key.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kotae-ai/kotae/internal/models"
)

// Store holds raw document bytes. Ingestion only reads from it; writes
// happen at upload time and deletes when a document is removed.
type Store interface {
	Put(key string, content []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// FileStore keeps blobs as files under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// path maps a key to a file path, rejecting traversal outside the root.
func (s *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes content under key, overwriting any existing blob. Keys may
// contain path separators; intermediate directories are created.
func (s *FileStore) Put(key string, content []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create blob dir for %s: %w", key, err)
	}
	if err := os.WriteFile(p, content, 0644); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return nil
}

// Get returns the blob content for key.
func (s *FileStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return content, nil
}

// Delete removes the blob for key. Deleting a missing blob is not an error.
func (s *FileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
