package blob

import (
	"errors"
	"testing"

	"github.com/kotae-ai/kotae/internal/models"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("doc-1.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("doc-1.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Errorf("got %q", got)
	}
	if err := store.Delete("doc-1.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("doc-1.pdf"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	// Deleting again is fine.
	if err := store.Delete("doc-1.pdf"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

// Storage keys are nested ("uploads/<id>", "watch/<id>"); Put must create
// the intermediate directories on a fresh store.
func TestFileStore_NestedKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("uploads/doc-1", []byte("uploaded")); err != nil {
		t.Fatalf("nested key put failed: %v", err)
	}
	got, err := store.Get("uploads/doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "uploaded" {
		t.Errorf("got %q", got)
	}
	if err := store.Put("watch/sub/dir/doc-2", []byte("watched")); err != nil {
		t.Fatalf("deep key put failed: %v", err)
	}
	if err := store.Delete("uploads/doc-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("uploads/doc-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../escape", "/abs/path", "."} {
		if err := store.Put(key, []byte("x")); err == nil {
			t.Errorf("key %q should be rejected", key)
		}
	}
}
