package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ralt/pypiview/internal/fetcher"
	"github.com/ralt/pypiview/internal/render"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "pypiview_http_request_duration_seconds",
		Help: "HTTP request latency.",
	}, []string{"code", "method"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pypiview_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

// Server is the web front end: thin presentation glue over the fetcher,
// archive reader, metadata extractor and renderer.
type Server struct {
	fetcher   *fetcher.Fetcher
	renderer  *render.Renderer
	templates *template.Template
}

// New creates a server
func New(f *fetcher.Fetcher, r *render.Renderer) (*Server, error) {
	funcs := template.FuncMap{
		"humanSize": func(size int64) string {
			if size < 0 {
				return "unknown"
			}
			return humanize.IBytes(uint64(size))
		},
	}

	templates, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		fetcher:   f,
		renderer:  r,
		templates: templates,
	}, nil
}

// Handler returns the root HTTP handler with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /package/{package}", s.handlePackage)
	mux.HandleFunc("GET /package/{package}/{filename}", s.handleArchive)
	mux.HandleFunc("GET /package/{package}/{filename}/{path...}", s.handleEntry)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	handler := noCache(mux)
	handler = promhttp.InstrumentHandlerInFlight(requestsInFlight, handler)
	handler = promhttp.InstrumentHandlerDuration(requestDuration, handler)
	return handler
}

// noCache keeps browsers from caching pages whose backing archives may not
// have been cached yet themselves.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
