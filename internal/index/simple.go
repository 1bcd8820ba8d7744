package index

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/ralt/pypiview/internal/models"
)

const simpleJSONContentType = "application/vnd.pypi.simple.v1+json"

// SimpleRepository queries a PEP 503/691 "simple" index, preferring the JSON
// form and falling back to parsing anchors out of the HTML form.
type SimpleRepository struct {
	BaseURL string
	Client  *http.Client
}

// NewSimpleRepository creates a repository backed by the simple index API
func NewSimpleRepository(baseURL string, client *http.Client) *SimpleRepository {
	return &SimpleRepository{BaseURL: baseURL, Client: client}
}

type simpleResponse struct {
	Files []simpleFile `json:"files"`
}

type simpleFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// FilesForPackage implements Repository
func (r *SimpleRepository) FilesForPackage(ctx context.Context, name string) ([]models.ArchiveDescriptor, error) {
	endpoint := fmt.Sprintf("%s/simple/%s/", r.BaseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.WrapError(models.UpstreamUnavailable, "failed to build index request", err)
	}
	req.Header.Set("Accept", strings.Join([]string{
		simpleJSONContentType,
		"application/vnd.pypi.simple.v1+html;q=0.2",
		"text/html;q=0.01",
	}, ", "))

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

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == simpleJSONContentType {
		var body simpleResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, models.WrapError(models.UpstreamUnavailable, "failed to decode index response", err)
		}

		descriptors := make([]models.ArchiveDescriptor, 0, len(body.Files))
		for _, f := range body.Files {
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
		return descriptors, nil
	}

	// Degraded mode: HTML anchor list, one <a> per file. The anchor text is
	// unreliable on some mirrors, so the filename comes from the URL path.
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, models.WrapError(models.UpstreamUnavailable, "failed to parse index HTML", err)
	}

	var descriptors []models.ArchiveDescriptor
	for _, href := range collectAnchors(doc) {
		cleaned := resolveURL(resp.Request.URL, href)
		parsed, err := url.Parse(cleaned)
		if err != nil {
			continue
		}
		filename := path.Base(parsed.Path)
		if filename == "." || filename == "/" {
			continue
		}
		descriptors = append(descriptors, models.ArchiveDescriptor{
			Filename: filename,
			URL:      cleaned,
			Size:     -1,
		})
	}
	return descriptors, nil
}

func collectAnchors(n *html.Node) []string {
	var hrefs []string
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "href" && attr.Val != "" {
				hrefs = append(hrefs, attr.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hrefs = append(hrefs, collectAnchors(c)...)
	}
	return hrefs
}
