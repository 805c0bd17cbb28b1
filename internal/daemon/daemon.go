package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shellcache/internal/cachestore"
	"shellcache/internal/config"
	"shellcache/internal/controller"
	"shellcache/internal/interceptor"
	"shellcache/internal/logging"
)

// Daemon coordinates the controller lifecycle and the proxy server and
// enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *cachestore.Store
	ctrl   *controller.Controller
	icp    *interceptor.Interceptor

	instanceID string
	lockPath   string
	lock       *flock.Flock

	running atomic.Bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	server   *http.Server
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	State          string
	Version        string
	StaticStore    string
	DynamicStore   string
	StaticEntries  int
	DynamicEntries int
	Listen         string
	Upstream       string
	DBPath         string
	LockFilePath   string
	PID            int
	InstanceID     string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *cachestore.Store, ctrl *controller.Controller, icp *interceptor.Interceptor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || ctrl == nil || icp == nil {
		return nil, errors.New("daemon requires config, store, controller, and interceptor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		ctrl:       ctrl,
		icp:        icp,
		instanceID: uuid.NewString(),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, installs the controller, and begins
// serving once activation completes. When the controller is configured
// without skip_waiting, serving starts only after a SKIP_WAITING
// control message arrives.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shellcache daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	if err := d.ctrl.Install(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("install: %w", err)
	}

	d.running.Store(true)
	go d.runActivation(runCtx)

	d.logger.Info("shellcache daemon started",
		logging.String("lock", d.lockPath),
		logging.String("instance_id", d.instanceID))
	return nil
}

// runActivation waits out the waiting phase, activates, and starts the
// proxy listener. The context is captured at Start so a concurrent
// Stop can cancel it without racing field access.
func (d *Daemon) runActivation(ctx context.Context) {
	if err := d.ctrl.AwaitActivation(ctx); err != nil {
		return
	}
	if err := d.ctrl.Activate(ctx); err != nil {
		d.logger.Error("activation failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "proxy will not serve traffic"))
		return
	}
	if err := d.startServer(ctx); err != nil {
		d.logger.Error("proxy server failed to start", logging.Error(err))
	}
}

func (d *Daemon) startServer(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.cfg.Proxy.Listen)
	if err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}

	server := &http.Server{
		Handler:           d.icp,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	d.mu.Lock()
	d.listener = listener
	d.server = server
	d.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("proxy server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	d.logger.Info("proxy listening",
		logging.String("address", listener.Addr().String()),
		logging.String("upstream", d.cfg.Proxy.Upstream))
	return nil
}

// Addr returns the proxy listen address, or "" while the server is not
// up yet.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Stop stops serving, waits for in-flight cache writes, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	server := d.server
	d.server = nil
	d.listener = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = server.Shutdown(shutdownCtx)
		cancel()
	}

	// Let fire-and-forget dynamic writes land before the store closes.
	d.ctrl.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shellcache daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Controller exposes the hosted controller for the control plane.
func (d *Daemon) Controller() *controller.Controller {
	return d.ctrl
}

// LogPath returns the daemon log file consumed by the LogTail RPC.
func (d *Daemon) LogPath() string {
	return d.cfg.LogFilePath()
}

// Status returns runtime information for the control plane and CLI.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		State:        string(d.ctrl.State()),
		Version:      d.ctrl.Version(),
		StaticStore:  d.ctrl.StaticStoreName(),
		DynamicStore: d.ctrl.DynamicStoreName(),
		Listen:       d.cfg.Proxy.Listen,
		Upstream:     d.cfg.Proxy.Upstream,
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		PID:          os.Getpid(),
		InstanceID:   d.instanceID,
	}
	if addr := d.Addr(); addr != "" {
		status.Listen = addr
	}
	if count, err := d.store.Count(ctx, status.StaticStore); err == nil {
		status.StaticEntries = count
	}
	if count, err := d.store.Count(ctx, status.DynamicStore); err == nil {
		status.DynamicEntries = count
	}
	return status
}
