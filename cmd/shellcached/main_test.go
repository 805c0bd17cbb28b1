package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shellcache/internal/config"
	"shellcache/internal/logging"
)

func TestBootstrapWiresDaemon(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Push.Enabled = true
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	d, err := bootstrap(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon should not run before Start")
	}
	if status.StaticStore != "shellcache-static-v1" {
		t.Errorf("static store = %q", status.StaticStore)
	}
	if status.DBPath != cfg.DatabasePath() {
		t.Errorf("db path = %q, want %q", status.DBPath, cfg.DatabasePath())
	}
}

func TestBuildSocketPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	expected := filepath.Join(cfg.Paths.LogDir, "shellcached.sock")
	if got := buildSocketPath(&cfg, ""); got != expected {
		t.Fatalf("expected socket path %q, got %q", expected, got)
	}

	if got := buildSocketPath(&cfg, "/tmp/custom.sock"); got != "/tmp/custom.sock" {
		t.Fatalf("override ignored, got %q", got)
	}

	if got := buildSocketPath(nil, ""); got != filepath.Join(os.TempDir(), "shellcached.sock") {
		t.Fatalf("unexpected default socket path %q", got)
	}
}
