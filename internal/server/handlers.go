package server

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ralt/pypiview/internal/archive"
	"github.com/ralt/pypiview/internal/index"
	"github.com/ralt/pypiview/internal/models"
	"github.com/ralt/pypiview/internal/pkgmeta"
	"github.com/ralt/pypiview/internal/render"
)

const unsupportedArchiveMessage = "Sorry, this package type is not yet supported."

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "home.html.tmpl", nil)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, packageURL(index.NormalizePackageName(pkg)), http.StatusFound)
}

type packagePage struct {
	Package    string
	Versions   []versionGroup
	TotalFiles int
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	pkg := r.PathValue("package")
	if normalized := index.NormalizePackageName(pkg); normalized != pkg {
		http.Redirect(w, r, packageURL(normalized), http.StatusFound)
		return
	}

	descriptors, err := s.fetcher.ListArchives(r.Context(), pkg)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}

	s.renderPage(w, "package.html.tmpl", packagePage{
		Package:    pkg,
		Versions:   groupByVersion(descriptors),
		TotalFiles: len(descriptors),
	})
}

type metadataField struct {
	Key    string
	Values []string
}

type archivePage struct {
	Package      string
	Filename     string
	Kind         string
	Entries      []models.Entry
	TotalSize    int64
	MetadataPath string
	Metadata     []metadataField
	MetadataNote string
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	pkg := r.PathValue("package")
	filename := r.PathValue("filename")
	if normalized := index.NormalizePackageName(pkg); normalized != pkg {
		http.Redirect(w, r, packageURL(normalized)+"/"+url.PathEscape(filename), http.StatusFound)
		return
	}

	a, err := s.openArchive(r, pkg, filename)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}
	defer a.Close()

	page := archivePage{
		Package:  pkg,
		Filename: filename,
		Kind:     a.Kind.String(),
		Entries:  a.Entries(),
	}
	for _, entry := range page.Entries {
		page.TotalSize += entry.Size
	}

	metadataPath, record, err := pkgmeta.Extract(a, s.renderer.SizeLimit())
	switch {
	case err == nil:
		page.MetadataPath = metadataPath
		for _, key := range record.Keys() {
			page.Metadata = append(page.Metadata, metadataField{Key: key, Values: record.Get(key)})
		}
	case models.IsKind(err, models.NoMetadata):
		// Panel is simply omitted
	case models.IsKind(err, models.AmbiguousMetadata):
		page.MetadataNote = "This archive contains more than one metadata candidate."
	default:
		logrus.Warnf("Failed to extract metadata from %s: %v", filename, err)
	}

	s.renderPage(w, "archive.html.tmpl", page)
}

type entryPage struct {
	Package      string
	Filename     string
	Path         string
	Entry        models.Entry
	Mimetype     string
	Rendered     template.HTML
	HighlightCSS template.CSS
	CannotRender string
	RawURL       string
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	pkg := r.PathValue("package")
	filename := r.PathValue("filename")
	entryPath := r.PathValue("path")
	if normalized := index.NormalizePackageName(pkg); normalized != pkg {
		http.Redirect(w, r, packageURL(normalized)+"/"+url.PathEscape(filename)+"/"+entryPath, http.StatusFound)
		return
	}

	a, err := s.openArchive(r, pkg, filename)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}
	defer a.Close()

	entry, err := a.Entry(entryPath)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}

	if r.URL.Query().Has("raw") {
		s.serveRaw(w, a, entry)
		return
	}

	page := entryPage{
		Package:  pkg,
		Filename: filename,
		Path:     entryPath,
		Entry:    entry,
		Mimetype: guessMimetype(entryPath),
		RawURL:   r.URL.Path + "?raw=1",
	}

	if entry.Size > s.renderer.SizeLimit() {
		page.CannotRender = render.ReasonTooLarge.String()
		s.renderPage(w, "entry.html.tmpl", page)
		return
	}

	rc, err := a.ReadEntry(entryPath)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(rc, s.renderer.SizeLimit()+1))
	rc.Close()
	if err != nil {
		s.renderError(w, pkg, fmt.Errorf("failed to read %s: %w", entryPath, err))
		return
	}

	result, err := s.renderer.Render(entryPath, data)
	if err != nil {
		s.renderError(w, pkg, err)
		return
	}
	if result.Rendered() {
		page.Rendered = result.HTML
		page.HighlightCSS = s.renderer.CSS()
	} else {
		page.CannotRender = result.Reason.String()
	}
	s.renderPage(w, "entry.html.tmpl", page)
}

// openArchive fetches (or finds cached) the archive bytes and opens them
func (s *Server) openArchive(r *http.Request, pkg, filename string) (*archive.Archive, error) {
	path, err := s.fetcher.ArchivePath(r.Context(), pkg, filename)
	if err != nil {
		return nil, err
	}
	return archive.Open(path, filename)
}

// serveRaw streams a member's bytes verbatim
func (s *Server) serveRaw(w http.ResponseWriter, a *archive.Archive, entry models.Entry) {
	rc, err := a.ReadEntry(entry.Path)
	if err != nil {
		s.renderError(w, entry.Path, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", rawContentType(entry.Path))
	w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		logrus.Debugf("Raw transfer of %s interrupted: %v", entry.Path, err)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logrus.Errorf("Failed to render %s: %v", name, err)
	}
}

// renderError maps the error taxonomy onto user-facing responses carrying
// the originating reason, never a stack trace.
func (s *Server) renderError(w http.ResponseWriter, subject string, err error) {
	switch {
	case models.IsKind(err, models.PackageNotFound):
		http.Error(w, fmt.Sprintf("Package %q does not exist on the index.", subject), http.StatusNotFound)
	case models.IsKind(err, models.ArchiveNotFound):
		http.Error(w, fmt.Sprintf("%v", err), http.StatusNotFound)
	case models.IsKind(err, models.EntryNotFound):
		http.Error(w, fmt.Sprintf("%v", err), http.StatusNotFound)
	case models.IsKind(err, models.UnsupportedArchive):
		http.Error(w, unsupportedArchiveMessage, http.StatusNotImplemented)
	case models.IsKind(err, models.UpstreamUnavailable):
		logrus.Warnf("Upstream failure for %s: %v", subject, err)
		http.Error(w, fmt.Sprintf("%v", err), http.StatusBadGateway)
	default:
		logrus.Errorf("Request for %s failed: %v", subject, err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
	}
}

func packageURL(pkg string) string {
	return "/package/" + url.PathEscape(pkg)
}
