package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ralt/pypiview/internal/models"
)

// LegacyJSONRepository queries the non-standardized JSON API compatible with
// pypi.org's /pypi/{package}/json endpoints.
type LegacyJSONRepository struct {
	BaseURL string
	Client  *http.Client
}

// NewLegacyJSONRepository creates a repository backed by the legacy JSON API
func NewLegacyJSONRepository(baseURL string, client *http.Client) *LegacyJSONRepository {
	return &LegacyJSONRepository{BaseURL: baseURL, Client: client}
}

type legacyResponse struct {
	Releases map[string][]legacyFile `json:"releases"`
}

type legacyFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// FilesForPackage implements Repository
func (r *LegacyJSONRepository) FilesForPackage(ctx context.Context, name string) ([]models.ArchiveDescriptor, error) {
	endpoint := fmt.Sprintf("%s/pypi/%s/json", r.BaseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.WrapError(models.UpstreamUnavailable, "failed to build index request", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, models.WrapError(models.UpstreamUnavailable, "index query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, models.NewError(models.PackageNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewError(models.UpstreamUnavailable, fmt.Sprintf("index returned status %d", resp.StatusCode))
	}

	var body legacyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, models.WrapError(models.UpstreamUnavailable, "failed to decode index response", err)
	}

	var descriptors []models.ArchiveDescriptor
	for _, files := range body.Releases {
		for _, f := range files {
			size := f.Size
			if size == 0 {
				size = -1
			}
			descriptors = append(descriptors, models.ArchiveDescriptor{
				Filename: f.Filename,
				URL:      resolveURL(resp.Request.URL, f.URL),
				Size:     size,
			})
		}
	}
	return descriptors, nil
}

// resolveURL resolves ref against the final request URL (after redirects)
// and strips any fragment.
func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
