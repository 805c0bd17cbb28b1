package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shellcache/internal/cachestore"
	"shellcache/internal/config"
	"shellcache/internal/controller"
	"shellcache/internal/daemon"
	"shellcache/internal/interceptor"
	"shellcache/internal/push"
)

// bootstrap assembles the daemon's dependency graph: cache store,
// lifecycle controller, push handler, and fetch interceptor.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := cachestore.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: time.Duration(cfg.Proxy.RequestTimeout) * time.Second,
		// Redirects from the upstream pass through uncached, so the
		// client must not chase them itself.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var pushHandler *push.Handler
	if cfg.Push.Enabled {
		pushHandler = push.NewHandler(push.NewLogNotifier(logger), logger)
	}

	ctrl, err := controller.New(controller.Options{
		Namespace:      cfg.Cache.Namespace,
		Version:        cfg.Cache.Version,
		StaticManifest: cfg.Precache.URLs,
		SkipWaiting:    cfg.Controller.SkipWaiting,
	}, controller.Deps{
		Store:    store,
		Client:   client,
		Upstream: cfg.Proxy.Upstream,
		Push:     pushHandler,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	icp, err := interceptor.New(ctrl, cfg.Proxy.Upstream, client, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	d, err := daemon.New(cfg, store, ctrl, icp, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}

func buildSocketPath(cfg *config.Config, override string) string {
	if socket := strings.TrimSpace(override); socket != "" {
		return socket
	}
	if cfg == nil {
		return filepath.Join(os.TempDir(), "shellcached.sock")
	}
	return cfg.SocketPath()
}
