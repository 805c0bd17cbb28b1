package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Cache.Namespace != defaultNamespace {
		t.Errorf("namespace = %q, want default %q", cfg.Cache.Namespace, defaultNamespace)
	}
	if cfg.Proxy.Listen != defaultListen {
		t.Errorf("listen = %q, want default %q", cfg.Proxy.Listen, defaultListen)
	}
	if len(cfg.Precache.URLs) == 0 || cfg.Precache.URLs[0] != "/" {
		t.Errorf("precache defaults missing: %v", cfg.Precache.URLs)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[proxy]
upstream = "http://origin.test:9000/"

[cache]
version = " v7 "

[precache]
urls = ["/", "/app.js", "/app.js", "  "]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Proxy.Upstream != "http://origin.test:9000" {
		t.Errorf("upstream not trimmed: %q", cfg.Proxy.Upstream)
	}
	if cfg.Cache.Version != "v7" {
		t.Errorf("version not trimmed: %q", cfg.Cache.Version)
	}
	if len(cfg.Precache.URLs) != 2 {
		t.Errorf("precache urls should deduplicate and drop blanks: %v", cfg.Precache.URLs)
	}
}

func TestValidateRejectsBadUpstream(t *testing.T) {
	cfg := Default()
	cfg.Proxy.Upstream = "ftp://example.com"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "proxy.upstream") {
		t.Fatalf("expected upstream scheme error, got %v", err)
	}
}

func TestValidateRejectsBadNamespace(t *testing.T) {
	cfg := Default()
	cfg.Cache.Namespace = "bad-name"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "cache.namespace") {
		t.Fatalf("expected namespace error, got %v", err)
	}
}

func TestValidateRejectsRelativePrecacheURL(t *testing.T) {
	cfg := Default()
	cfg.Precache.URLs = []string{"index.html"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "root-relative") {
		t.Fatalf("expected precache error, got %v", err)
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("sample config not detected")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(cfg.DatabasePath()) != "cache.db" {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
	if filepath.Base(cfg.SocketPath()) != "shellcached.sock" {
		t.Errorf("unexpected socket path %q", cfg.SocketPath())
	}
}
