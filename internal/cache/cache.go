package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
)

// Store is a content-addressed, on-disk byte cache. Each archive is stored
// under a filename derived from its source URL. Entries are immutable once
// visible and are never evicted; cleanup is the operator's responsibility.
type Store struct {
	root string
}

// NewStore creates a cache store rooted at the given directory, creating it
// if necessary.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the cache root directory
func (s *Store) Root() string {
	return s.root
}

// Path returns the on-disk location for the archive at the given source URL.
// The key is the sha256 digest of the full URL, so distinct URLs never
// collide even when their basenames match.
func (s *Store) Path(url string) string {
	return filepath.Join(s.root, digest.FromString(url).Encoded())
}

// Get returns the stored path for the archive at url if a complete copy
// exists in the cache.
func (s *Store) Get(url string) (string, bool) {
	path := s.Path(url)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		cacheMisses.Inc()
		return "", false
	}
	cacheHits.Inc()
	return path, true
}

// PendingFile is an in-progress cache write. Bytes are written to a
// temporary file in the cache directory; Commit renames it into place so a
// half-written archive is never visible at the final path.
type PendingFile struct {
	f     *os.File
	final string
	done  bool
}

// Create starts a cache write for the archive at url
func (s *Store) Create(url string) (*PendingFile, error) {
	f, err := os.CreateTemp(s.root, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &PendingFile{f: f, final: s.Path(url)}, nil
}

// Write implements io.Writer
func (p *PendingFile) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	cacheBytesWritten.Add(float64(n))
	return n, err
}

// Commit publishes the pending file at its final path. The rename is atomic
// because the temporary file lives in the same directory.
func (p *PendingFile) Commit() (string, error) {
	if p.done {
		return "", fmt.Errorf("pending file already finished")
	}
	p.done = true
	if err := p.f.Sync(); err != nil {
		p.discard()
		return "", fmt.Errorf("failed to sync: %w", err)
	}
	if err := p.f.Close(); err != nil {
		os.Remove(p.f.Name())
		return "", fmt.Errorf("failed to close: %w", err)
	}
	if err := os.Rename(p.f.Name(), p.final); err != nil {
		os.Remove(p.f.Name())
		return "", fmt.Errorf("failed to publish cache entry: %w", err)
	}
	return p.final, nil
}

// Abort discards the pending file, leaving the cache untouched
func (p *PendingFile) Abort() {
	if p.done {
		return
	}
	p.done = true
	p.discard()
}

func (p *PendingFile) discard() {
	name := p.f.Name()
	if err := p.f.Close(); err != nil {
		logrus.Warnf("Failed to close temporary file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logrus.Warnf("Failed to remove temporary file %s: %v", name, err)
	}
}
