package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	if err := store.Save(ctx, "12.png", bytes.NewReader([]byte("image"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := store.Open(ctx, "12.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "image" {
		t.Fatalf("unexpected content %q", b)
	}

	if err := store.Save(ctx, "12.png", bytes.NewReader([]byte("replaced"))); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if err := store.Delete(ctx, "12.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "12.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if _, err := store.Open(ctx, "12.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("open after delete should be not found, got %v", err)
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"../escape.txt", "/etc/passwd", "", "a/../../b"} {
		if err := store.Save(ctx, key, bytes.NewReader([]byte("x"))); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Save(ctx, "nested/3.pdf", bytes.NewReader([]byte("pdf"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "3.pdf" {
		t.Fatalf("unexpected directory content %v", entries)
	}
}
