package config

import (
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
)

// Defaults
const (
	DefaultListen      = ":8000"
	DefaultIndexURL    = "https://pypi.org"
	DefaultRenderLimit = 1 << 20 // 1 MiB
	DefaultCacheTTL    = 60      // seconds, for in-memory index listings
)

// Config holds the server configuration. Values are resolved in order:
// defaults, then the optional TOML config file, then environment variables,
// then command-line flags.
type Config struct {
	// Listen is the HTTP listen address
	Listen string `toml:"listen"`

	// IndexURL is the package index base URL
	IndexURL string `toml:"index_url"`

	// LegacyJSON selects the /pypi/{package}/json API instead of the
	// simple index API
	LegacyJSON bool `toml:"legacy_json"`

	// CacheDir is the archive cache root. Required; the cache grows
	// without bound and cleanup is the operator's responsibility.
	CacheDir string `toml:"cache_dir"`

	// RenderLimit caps inline rendering and metadata members, in bytes
	RenderLimit int64 `toml:"render_limit"`

	// ListingCacheTTL is the in-memory index listing cache TTL in seconds
	ListingCacheTTL int `toml:"listing_cache_ttl"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Listen:          DefaultListen,
		IndexURL:        DefaultIndexURL,
		RenderLimit:     DefaultRenderLimit,
		ListingCacheTTL: DefaultCacheTTL,
	}
}

// LoadFile overlays the TOML config file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays PYPIVIEW_* environment variables onto c
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PYPIVIEW_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PYPIVIEW_INDEX_URL"); v != "" {
		c.IndexURL = v
	}
	if v := os.Getenv("PYPIVIEW_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("PYPIVIEW_RENDER_LIMIT"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PYPIVIEW_RENDER_LIMIT: %w", err)
		}
		c.RenderLimit = limit
	}
	if v := os.Getenv("PYPIVIEW_LEGACY_JSON"); v != "" {
		legacy, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PYPIVIEW_LEGACY_JSON: %w", err)
		}
		c.LegacyJSON = legacy
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache-dir is required (flag, PYPIVIEW_CACHE_DIR, or config file)")
	}
	if c.IndexURL == "" {
		return fmt.Errorf("index-url is required")
	}
	if c.RenderLimit <= 0 {
		return fmt.Errorf("render-limit must be positive")
	}
	return nil
}
