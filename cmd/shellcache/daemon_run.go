package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shellcache/internal/cachestore"
	"shellcache/internal/controller"
	"shellcache/internal/daemon"
	"shellcache/internal/interceptor"
	"shellcache/internal/ipc"
	"shellcache/internal/logging"
	"shellcache/internal/preflight"
	"shellcache/internal/push"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		Long: "Runs install, activation, and the caching proxy in the current " +
			"process instead of launching the detached shellcached binary. " +
			"Useful for development and supervised deployments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogFilePath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove pid file", logging.Error(err))
		}
	}()

	store, err := cachestore.Open(cfg.DatabasePath())
	if err != nil {
		logger.Error("open cache store", logging.Error(err))
		return err
	}
	defer store.Close()

	client := &http.Client{
		Timeout: time.Duration(cfg.Proxy.RequestTimeout) * time.Second,
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
		return fmt.Errorf("create controller: %w", err)
	}

	icp, err := interceptor.New(ctrl, cfg.Proxy.Upstream, client, logger)
	if err != nil {
		return fmt.Errorf("create interceptor: %w", err)
	}

	d, err := daemon.New(cfg, store, ctrl, icp, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, ctx.socketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-signalCtx.Done()
	logger.Info("shellcache daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
