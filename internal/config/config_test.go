package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.IndexURL != "https://pypi.org" {
		t.Errorf("IndexURL = %q", cfg.IndexURL)
	}
	if cfg.RenderLimit != 1<<20 {
		t.Errorf("RenderLimit = %d", cfg.RenderLimit)
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("Validate passed without a cache dir")
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "pypiview-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.toml")
	content := `
listen = ":9999"
index_url = "https://mirror.example.com"
cache_dir = "/var/cache/pypiview"
legacy_json = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.IndexURL != "https://mirror.example.com" {
		t.Errorf("IndexURL = %q", cfg.IndexURL)
	}
	if cfg.CacheDir != "/var/cache/pypiview" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if !cfg.LegacyJSON {
		t.Errorf("LegacyJSON = false, want true")
	}
	// Untouched values keep their defaults
	if cfg.RenderLimit != DefaultRenderLimit {
		t.Errorf("RenderLimit = %d, want default", cfg.RenderLimit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PYPIVIEW_CACHE_DIR", "/tmp/envcache")
	t.Setenv("PYPIVIEW_RENDER_LIMIT", "2048")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.CacheDir != "/tmp/envcache" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.RenderLimit != 2048 {
		t.Errorf("RenderLimit = %d, want 2048", cfg.RenderLimit)
	}

	t.Setenv("PYPIVIEW_RENDER_LIMIT", "not-a-number")
	if err := cfg.ApplyEnv(); err == nil {
		t.Errorf("ApplyEnv accepted a malformed render limit")
	}
}
