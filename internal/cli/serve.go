package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/pypiview/internal/cache"
	"github.com/ralt/pypiview/internal/config"
	"github.com/ralt/pypiview/internal/fetcher"
	"github.com/ralt/pypiview/internal/index"
	"github.com/ralt/pypiview/internal/render"
	"github.com/ralt/pypiview/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the archive browser web server",
		Long: `Starts the HTTP server. Configuration is resolved from defaults,
then the optional TOML config file, then PYPIVIEW_* environment variables,
then command-line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				if err := cfg.LoadFile(configPath); err != nil {
					return err
				}
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			overlayFlags(cmd, &cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logrus.Debugf("Configuration: %+v", cfg)
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&flags.Listen, "listen", "l", config.DefaultListen, "HTTP listen address")
	cmd.Flags().StringVar(&flags.IndexURL, "index-url", config.DefaultIndexURL, "Package index base URL")
	cmd.Flags().BoolVar(&flags.LegacyJSON, "legacy-json", false, "Use the legacy /pypi/{package}/json API instead of the simple API")
	cmd.Flags().StringVar(&flags.CacheDir, "cache-dir", "", "Archive cache directory (required)")
	cmd.Flags().Int64Var(&flags.RenderLimit, "render-limit", config.DefaultRenderLimit, "Inline render size limit in bytes")

	return cmd
}

// overlayFlags applies only the flags the user actually set, preserving the
// flag > env > config file > default precedence.
func overlayFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	if cmd.Flags().Changed("listen") {
		cfg.Listen = flags.Listen
	}
	if cmd.Flags().Changed("index-url") {
		cfg.IndexURL = flags.IndexURL
	}
	if cmd.Flags().Changed("legacy-json") {
		cfg.LegacyJSON = flags.LegacyJSON
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = flags.CacheDir
	}
	if cmd.Flags().Changed("render-limit") {
		cfg.RenderLimit = flags.RenderLimit
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return err
	}
	logrus.Infof("Caching archives under %s", store.Root())

	client := index.NewHTTPClient()
	repo := newRepository(cfg, client)

	renderer, err := render.New(cfg.RenderLimit)
	if err != nil {
		return err
	}

	srv, err := server.New(fetcher.New(repo, store, client), renderer)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Listening on %s (index: %s)", cfg.Listen, cfg.IndexURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newRepository(cfg config.Config, client *http.Client) index.Repository {
	var repo index.Repository
	if cfg.LegacyJSON {
		repo = index.NewLegacyJSONRepository(cfg.IndexURL, client)
	} else {
		repo = index.NewSimpleRepository(cfg.IndexURL, client)
	}
	if cfg.ListingCacheTTL > 0 {
		repo = index.NewCachingRepository(repo, time.Duration(cfg.ListingCacheTTL)*time.Second)
	}
	return repo
}
