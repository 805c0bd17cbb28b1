package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shellcache/internal/cachestore"
	"shellcache/internal/config"
	"shellcache/internal/controller"
	"shellcache/internal/daemon"
	"shellcache/internal/interceptor"
	"shellcache/internal/ipc"
	"shellcache/internal/logging"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	upstream   *httptest.Server
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html>app shell</html>")
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Proxy.Listen = "127.0.0.1:0"
	cfg.Proxy.Upstream = upstream.URL
	cfg.Precache.URLs = []string{"/"}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(homeDir, ".config", "shellcache", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, &cfg)

	store, err := cachestore.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatal(err)
	}

	logger := logging.NewNop()
	ctrl, err := controller.New(controller.Options{
		Namespace:      cfg.Cache.Namespace,
		Version:        cfg.Cache.Version,
		StaticManifest: cfg.Precache.URLs,
		SkipWaiting:    true,
	}, controller.Deps{Store: store, Upstream: upstream.URL, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}

	icp, err := interceptor.New(ctrl, upstream.URL, nil, logger)
	if err != nil {
		t.Fatal(err)
	}

	d, err := daemon.New(&cfg, store, ctrl, icp, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			cancel()
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        &cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		upstream:   upstream,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return env
}

func startDaemon(t *testing.T, env *cliTestEnv) {
	t.Helper()
	if err := env.daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	waitActive(t, env)
}

func waitActive(t *testing.T, env *cliTestEnv) {
	t.Helper()
	waitFor(t, 5*time.Second, func() bool {
		return env.daemon.Status(context.Background()).State == "active"
	})
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[proxy]\nlisten = %q\nupstream = %q\n\n[precache]\nurls = [\"/\"]\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Proxy.Listen,
		cfg.Proxy.Upstream,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
