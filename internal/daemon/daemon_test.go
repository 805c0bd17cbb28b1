package daemon

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"shellcache/internal/cachestore"
	"shellcache/internal/config"
	"shellcache/internal/controller"
	"shellcache/internal/interceptor"
)

func newTestDaemon(t *testing.T, upstream string, skipWaiting bool) *Daemon {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Proxy.Listen = "127.0.0.1:0"
	cfg.Proxy.Upstream = upstream
	cfg.Precache.URLs = []string{"/"}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	store, err := cachestore.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctrl, err := controller.New(controller.Options{
		Namespace:      cfg.Cache.Namespace,
		Version:        cfg.Cache.Version,
		StaticManifest: cfg.Precache.URLs,
		SkipWaiting:    skipWaiting,
	}, controller.Deps{Store: store, Upstream: upstream})
	if err != nil {
		t.Fatal(err)
	}

	icp, err := interceptor.New(ctrl, upstream, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	d, err := New(&cfg, store, ctrl, icp, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Stop)
	return d
}

func waitForAddr(t *testing.T, d *Daemon) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if addr := d.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("proxy server did not start")
	return ""
}

func TestDaemonServesThroughProxyAfterActivation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "shell page")
	}))
	defer upstream.Close()

	d := newTestDaemon(t, upstream.URL, true)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	addr := waitForAddr(t, d)

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("proxy request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "shell page" {
		t.Errorf("status=%d body=%q", resp.StatusCode, body)
	}
	// "/" was precached at install, so the proxy answers from cache.
	if got := resp.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT for precached root", got)
	}

	status := d.Status(context.Background())
	if !status.Running || status.State != "active" {
		t.Errorf("status = %+v", status)
	}
	if status.StaticEntries != 1 {
		t.Errorf("static entries = %d, want 1", status.StaticEntries)
	}
}

func TestDaemonRejectsSecondStart(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	d := newTestDaemon(t, upstream.URL, true)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
}

func TestDaemonStopReleasesLock(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	d := newTestDaemon(t, upstream.URL, true)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForAddr(t, d)
	d.Stop()

	if d.Status(context.Background()).Running {
		t.Error("daemon should report stopped")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Errorf("restart after Stop should succeed: %v", err)
	}
}

func TestDaemonStopDuringWaitingPhase(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	// Stop racing a waiting-phase skip must neither panic the
	// activation goroutine nor skip the graceful drain.
	for i := 0; i < 10; i++ {
		d := newTestDaemon(t, upstream.URL, false)
		if err := d.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		skipped := make(chan struct{})
		go func() {
			d.Controller().SkipWaiting()
			close(skipped)
		}()
		d.Stop()
		<-skipped

		if d.Status(context.Background()).Running {
			t.Fatal("daemon should report stopped")
		}
	}
}
