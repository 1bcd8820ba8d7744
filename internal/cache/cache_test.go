package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pypiview-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestPathDeterministicAndCollisionFree(t *testing.T) {
	store := newTestStore(t)

	a := store.Path("https://files.example.com/a/pkg-1.0.whl")
	b := store.Path("https://files.example.com/b/pkg-1.0.whl")

	if a == b {
		t.Errorf("Distinct URLs with the same basename share cache path %s", a)
	}
	if a != store.Path("https://files.example.com/a/pkg-1.0.whl") {
		t.Errorf("Path is not deterministic")
	}
	if filepath.Dir(a) != store.Root() {
		t.Errorf("Path %s is outside the cache root", a)
	}
}

func TestGetMiss(t *testing.T) {
	store := newTestStore(t)

	if path, ok := store.Get("https://example.com/missing.whl"); ok {
		t.Errorf("Get reported a hit at %s for an empty cache", path)
	}
}

func TestCreateCommit(t *testing.T) {
	store := newTestStore(t)
	url := "https://example.com/pkg-1.0.whl"

	pending, err := store.Create(url)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := pending.Write([]byte("archive bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Not visible until committed
	if _, ok := store.Get(url); ok {
		t.Errorf("Uncommitted write is visible in the cache")
	}

	path, err := pending.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, ok := store.Get(url)
	if !ok || got != path {
		t.Fatalf("Get = (%s, %v), want committed path %s", got, ok, path)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("Failed to read cache entry: %v", err)
	}
	if string(data) != "archive bytes" {
		t.Errorf("Cache entry = %q, want %q", data, "archive bytes")
	}
}

func TestAbortLeavesNoTrace(t *testing.T) {
	store := newTestStore(t)
	url := "https://example.com/pkg-1.0.whl"

	pending, err := store.Create(url)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	pending.Write([]byte("partial"))
	pending.Abort()

	if _, ok := store.Get(url); ok {
		t.Errorf("Aborted write is visible in the cache")
	}

	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("Failed to list cache root: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".download-") {
			t.Errorf("Temporary file %s left behind after abort", entry.Name())
		}
	}
}
