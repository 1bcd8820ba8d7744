package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ralt/pypiview/internal/cache"
	"github.com/ralt/pypiview/internal/index"
	"github.com/ralt/pypiview/internal/models"
)

// testIndex serves a legacy JSON listing for one package plus the archive
// bytes themselves, counting archive downloads.
type testIndex struct {
	server        *httptest.Server
	archiveBytes  []byte
	downloadCount atomic.Int64
}

func newTestIndex(t *testing.T) *testIndex {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("examplepkg/__init__.py")
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}
	w.Write([]byte("print(42)\n"))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	ti := &testIndex{archiveBytes: buf.Bytes()}
	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/examplepkg/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"releases": {"1.0": [{"filename": "examplepkg-1.0-py3-none-any.whl", "url": "%s/files/examplepkg-1.0-py3-none-any.whl"}]}}`, ti.server.URL)
	})
	mux.HandleFunc("/files/examplepkg-1.0-py3-none-any.whl", func(w http.ResponseWriter, r *http.Request) {
		ti.downloadCount.Add(1)
		w.Write(ti.archiveBytes)
	})

	ti.server = httptest.NewServer(mux)
	t.Cleanup(ti.server.Close)
	return ti
}

func newTestFetcher(t *testing.T, ti *testIndex) *Fetcher {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pypiview-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := cache.NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	repo := index.NewLegacyJSONRepository(ti.server.URL, ti.server.Client())
	return New(repo, store, ti.server.Client())
}

func TestArchivePathDownloadsOnce(t *testing.T) {
	ti := newTestIndex(t)
	f := newTestFetcher(t, ti)

	var first string
	for i := 0; i < 3; i++ {
		path, err := f.ArchivePath(context.Background(), "examplepkg", "examplepkg-1.0-py3-none-any.whl")
		if err != nil {
			t.Fatalf("ArchivePath failed on read %d: %v", i, err)
		}
		if first == "" {
			first = path
		} else if path != first {
			t.Errorf("ArchivePath returned %s, want stable path %s", path, first)
		}
	}

	if got := ti.downloadCount.Load(); got != 1 {
		t.Errorf("Archive was downloaded %d times, want 1", got)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("Failed to read cached archive: %v", err)
	}
	if !bytes.Equal(data, ti.archiveBytes) {
		t.Errorf("Cached bytes differ from source (%d vs %d bytes)", len(data), len(ti.archiveBytes))
	}
}

func TestArchivePathUnknownFilename(t *testing.T) {
	ti := newTestIndex(t)
	f := newTestFetcher(t, ti)

	_, err := f.ArchivePath(context.Background(), "examplepkg", "examplepkg-9.9.zip")
	if !models.IsKind(err, models.ArchiveNotFound) {
		t.Errorf("Error = %v, want ArchiveNotFound", err)
	}
	if models.IsKind(err, models.PackageNotFound) {
		t.Errorf("Unknown filename for an existing package must not be PackageNotFound")
	}
}

func TestArchivePathUnknownPackage(t *testing.T) {
	ti := newTestIndex(t)
	f := newTestFetcher(t, ti)

	_, err := f.ArchivePath(context.Background(), "nosuchpkg", "nosuchpkg-1.0.zip")
	if !models.IsKind(err, models.PackageNotFound) {
		t.Errorf("Error = %v, want PackageNotFound", err)
	}
}

func TestConcurrentCacheMisses(t *testing.T) {
	ti := newTestIndex(t)
	f := newTestFetcher(t, ti)

	const workers = 8
	paths := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = f.ArchivePath(context.Background(), "examplepkg", "examplepkg-1.0-py3-none-any.whl")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Worker %d failed: %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Errorf("Worker %d got path %s, want %s", i, paths[i], paths[0])
		}
	}

	// Exactly one complete file at the final path, no stray temp files
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("Failed to read cached archive: %v", err)
	}
	if !bytes.Equal(data, ti.archiveBytes) {
		t.Errorf("Cached archive is corrupt after concurrent downloads")
	}

	dir, err := os.ReadDir(filepath.Dir(paths[0]))
	if err != nil {
		t.Fatalf("Failed to list cache dir: %v", err)
	}
	files := 0
	for _, entry := range dir {
		if strings.HasPrefix(entry.Name(), ".download-") {
			t.Errorf("Temporary file %s left behind", entry.Name())
		} else {
			files++
		}
	}
	if files != 1 {
		t.Errorf("Cache holds %d files, want exactly 1", files)
	}
}

func TestDownloadFailureLeavesNoCacheEntry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/examplepkg/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"releases": {"1.0": [{"filename": "examplepkg-1.0.zip", "url": "%s/files/examplepkg-1.0.zip"}]}}`, serverURL)
	})
	mux.HandleFunc("/files/examplepkg-1.0.zip", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("PK\x05\x06" + strings.Repeat("\x00", 18)))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	serverURL = ts.URL

	tmpDir, err := os.MkdirTemp("", "pypiview-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := cache.NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	f := New(index.NewLegacyJSONRepository(ts.URL, http.DefaultClient), store, http.DefaultClient)

	if _, err := f.ArchivePath(context.Background(), "examplepkg", "examplepkg-1.0.zip"); !models.IsKind(err, models.UpstreamUnavailable) {
		t.Fatalf("Error = %v, want UpstreamUnavailable", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to list cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Failed download left %d files in the cache", len(entries))
	}

	// A later attempt succeeds once upstream recovers
	fail.Store(false)
	if _, err := f.ArchivePath(context.Background(), "examplepkg", "examplepkg-1.0.zip"); err != nil {
		t.Errorf("ArchivePath failed after upstream recovered: %v", err)
	}
}
