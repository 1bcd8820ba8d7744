package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ralt/pypiview/internal/cache"
	"github.com/ralt/pypiview/internal/index"
	"github.com/ralt/pypiview/internal/models"
)

// Fetcher resolves package archives against the index and makes their bytes
// available as local files, using the cache store as a write-through cache.
type Fetcher struct {
	repo   index.Repository
	store  *cache.Store
	client *http.Client
	group  singleflight.Group
}

// New creates a fetcher
func New(repo index.Repository, store *cache.Store, client *http.Client) *Fetcher {
	return &Fetcher{
		repo:   repo,
		store:  store,
		client: client,
	}
}

// ListArchives returns one descriptor per archive file published for the
// package. The name is normalized before querying the index.
func (f *Fetcher) ListArchives(ctx context.Context, pkg string) ([]models.ArchiveDescriptor, error) {
	return f.repo.FilesForPackage(ctx, index.NormalizePackageName(pkg))
}

// ArchivePath returns the local path of the named archive's bytes,
// downloading and caching them first when needed. The returned file is
// always complete: downloads publish into the cache atomically.
func (f *Fetcher) ArchivePath(ctx context.Context, pkg, filename string) (string, error) {
	descriptors, err := f.ListArchives(ctx, pkg)
	if err != nil {
		return "", err
	}

	var url string
	for _, desc := range descriptors {
		if desc.Filename == filename {
			url = desc.URL
			break
		}
	}
	if url == "" {
		return "", models.NewError(models.ArchiveNotFound, fmt.Sprintf("%s has no file %s", pkg, filename))
	}

	if path, ok := f.store.Get(url); ok {
		return path, nil
	}

	// Concurrent misses for the same URL are coalesced; the atomic rename
	// in the cache store keeps a racing duplicate download harmless anyway.
	path, err, _ := f.group.Do(url, func() (interface{}, error) {
		if path, ok := f.store.Get(url); ok {
			return path, nil
		}
		return f.download(ctx, url)
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	logrus.Infof("Downloading %s", url)
	downloads.Inc()

	pending, err := f.store.Create(url)
	if err != nil {
		return "", models.WrapError(models.UpstreamUnavailable, "cache write failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		pending.Abort()
		return "", models.WrapError(models.UpstreamUnavailable, "failed to build download request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		pending.Abort()
		return "", models.WrapError(models.UpstreamUnavailable, "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pending.Abort()
		return "", models.NewError(models.UpstreamUnavailable, fmt.Sprintf("download returned status %d", resp.StatusCode))
	}

	if _, err := io.Copy(pending, resp.Body); err != nil {
		pending.Abort()
		return "", models.WrapError(models.UpstreamUnavailable, "download interrupted", err)
	}

	path, err := pending.Commit()
	if err != nil {
		return "", models.WrapError(models.UpstreamUnavailable, "cache write failed", err)
	}
	logrus.Debugf("Cached %s at %s", url, path)
	return path, nil
}
