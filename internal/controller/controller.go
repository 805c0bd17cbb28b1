package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"shellcache/internal/cachestore"
	"shellcache/internal/logging"
	"shellcache/internal/push"
)

// State is one phase of the controller lifecycle.
type State string

const (
	StateInstalling State = "installing"
	StateWaiting    State = "waiting"
	StateActivating State = "activating"
	StateActive     State = "active"
)

const (
	staticKind  = "static"
	dynamicKind = "dynamic"
)

// Options configures a controller instance.
type Options struct {
	// Namespace scopes store names. Activation cleanup never touches
	// stores outside this exact namespace.
	Namespace string
	// Version is the deployment version token embedded in store names.
	Version string
	// StaticManifest lists root-relative URLs precached at install.
	StaticManifest []string
	// SkipWaiting promotes the controller past the waiting phase as
	// soon as install completes.
	SkipWaiting bool
}

// Deps carries the controller's collaborators.
type Deps struct {
	Store    *cachestore.Store
	Client   *http.Client
	Upstream string
	Push     *push.Handler
	Logger   *slog.Logger
}

// Controller drives the install/activate lifecycle over a cache store.
type Controller struct {
	opts     Options
	store    *cachestore.Store
	client   *http.Client
	upstream *url.URL
	push     *push.Handler
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	skipOnce sync.Once
	skipped  chan struct{}

	writes sync.WaitGroup
}

// New constructs a controller. Store and Upstream are required.
func New(opts Options, deps Deps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("controller requires a cache store")
	}
	if strings.TrimSpace(opts.Namespace) == "" || strings.TrimSpace(opts.Version) == "" {
		return nil, errors.New("controller requires namespace and version")
	}
	upstream, err := url.Parse(strings.TrimRight(deps.Upstream, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		return nil, fmt.Errorf("upstream must be http or https, got %q", upstream.Scheme)
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Controller{
		opts:     opts,
		store:    deps.Store,
		client:   client,
		upstream: upstream,
		push:     deps.Push,
		logger:   logging.NewComponentLogger(deps.Logger, "controller"),
		state:    StateInstalling,
		skipped:  make(chan struct{}),
	}, nil
}

// StaticStoreName returns the live static store name for this version.
func (c *Controller) StaticStoreName() string {
	return storeName(c.opts.Namespace, staticKind, c.opts.Version)
}

// DynamicStoreName returns the live dynamic store name for this version.
func (c *Controller) DynamicStoreName() string {
	return storeName(c.opts.Namespace, dynamicKind, c.opts.Version)
}

// LookupOrder returns the store names searched on a cache lookup,
// static first.
func (c *Controller) LookupOrder() []string {
	return []string{c.StaticStoreName(), c.DynamicStoreName()}
}

// Version returns the deployment version token.
func (c *Controller) Version() string {
	return c.opts.Version
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.logger.Debug("lifecycle transition", logging.String("state", string(state)))
}

// SkipWaiting requests immediate promotion past the waiting phase. It
// is safe to call from any goroutine and at any lifecycle point.
func (c *Controller) SkipWaiting() {
	c.skipOnce.Do(func() {
		close(c.skipped)
		c.logger.Info("waiting phase skip requested",
			logging.String(logging.FieldEventType, "skip_waiting"))
	})
}

// AwaitActivation blocks until the waiting phase has been skipped or
// the context is canceled.
func (c *Controller) AwaitActivation(ctx context.Context) error {
	select {
	case <-c.skipped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackWrite runs fn on its own goroutine while keeping the controller
// alive for it. Shutdown calls Wait so in-flight cache writes land
// before the store closes.
func (c *Controller) TrackWrite(fn func()) {
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		fn()
	}()
}

// Wait blocks until all tracked writes have completed.
func (c *Controller) Wait() {
	c.writes.Wait()
}

// Store exposes the underlying cache store.
func (c *Controller) Store() *cachestore.Store {
	return c.store
}

// Origin reports whether u points at the configured upstream origin.
func (c *Controller) Origin(u *url.URL) bool {
	if u == nil {
		return false
	}
	return u.Scheme == c.upstream.Scheme && u.Host == c.upstream.Host
}

// CacheURLs eagerly fetches urls from the upstream and stores the
// cacheable ones in the dynamic store. It returns how many were
// admitted; individual failures are logged and skipped.
func (c *Controller) CacheURLs(ctx context.Context, urls []string) (int, error) {
	if err := c.store.EnsureStore(ctx, c.DynamicStoreName()); err != nil {
		return 0, err
	}
	stored := 0
	for _, raw := range urls {
		target := strings.TrimSpace(raw)
		if target == "" {
			continue
		}
		entry, err := c.fetchUpstream(ctx, target, false)
		if err != nil {
			c.logger.Warn("prefetch failed",
				logging.String(logging.FieldURL, target),
				logging.Error(err),
				logging.String(logging.FieldImpact, "url will be fetched from network on first use"))
			continue
		}
		if err := c.store.Put(ctx, c.DynamicStoreName(), *entry); err != nil {
			c.logger.Warn("prefetch store write failed",
				logging.String(logging.FieldURL, target),
				logging.String(logging.FieldStore, c.DynamicStoreName()),
				logging.Error(err))
			continue
		}
		stored++
	}
	return stored, nil
}

// fetchUpstream issues a GET for the root-relative target against the
// upstream origin. With revalidate set it bypasses intermediate HTTP
// caches. Only complete 200 responses are returned.
func (c *Controller) fetchUpstream(ctx context.Context, target string, revalidate bool) (*cachestore.Entry, error) {
	if !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("target %q is not root-relative", target)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.upstream.String()+target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if revalidate {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return &cachestore.Entry{
		URL:       target,
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func storeName(namespace, kind, version string) string {
	return namespace + "-" + kind + "-" + version
}

// ownsStaleStore reports whether name belongs to this controller's
// exact namespace but is not one of the live stores. The match is on
// the full "<namespace>-static-" / "<namespace>-dynamic-" prefix, not
// a loose namespace prefix, so an unrelated deployment whose namespace
// merely extends ours is never collected.
func (c *Controller) ownsStaleStore(name string) bool {
	if name == c.StaticStoreName() || name == c.DynamicStoreName() {
		return false
	}
	return strings.HasPrefix(name, c.opts.Namespace+"-"+staticKind+"-") ||
		strings.HasPrefix(name, c.opts.Namespace+"-"+dynamicKind+"-")
}
