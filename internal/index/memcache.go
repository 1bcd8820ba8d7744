package index

import (
	"context"
	"sync"
	"time"

	"github.com/ralt/pypiview/internal/models"
)

// CachingRepository wraps a Repository with a small in-memory TTL cache so
// that browsing within one package does not hammer the index with identical
// listing queries. Only successful listings are cached.
type CachingRepository struct {
	repo Repository
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]listingEntry
}

type listingEntry struct {
	descriptors []models.ArchiveDescriptor
	expiresAt   time.Time
}

// NewCachingRepository wraps repo with a listing cache using the given TTL
func NewCachingRepository(repo Repository, ttl time.Duration) *CachingRepository {
	return &CachingRepository{
		repo:    repo,
		ttl:     ttl,
		entries: make(map[string]listingEntry),
	}
}

// FilesForPackage implements Repository
func (c *CachingRepository) FilesForPackage(ctx context.Context, name string) ([]models.ArchiveDescriptor, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.descriptors, nil
	}

	descriptors, err := c.repo.FilesForPackage(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[name] = listingEntry{
		descriptors: descriptors,
		expiresAt:   time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return descriptors, nil
}
