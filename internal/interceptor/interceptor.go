package interceptor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"shellcache/internal/cachestore"
	"shellcache/internal/controller"
	"shellcache/internal/logging"
)

const headerCache = "X-Cache"

// Interceptor is the http.Handler implementing the
// cache-first-with-network-fallback policy in front of one upstream
// origin.
type Interceptor struct {
	ctrl     *controller.Controller
	client   *http.Client
	upstream *url.URL
	logger   *slog.Logger
}

// New constructs an interceptor for the given controller and upstream.
// The client must not follow redirects on its own; pass nil to get a
// correctly configured default.
func New(ctrl *controller.Controller, upstream string, client *http.Client, logger *slog.Logger) (*Interceptor, error) {
	if ctrl == nil {
		return nil, errors.New("interceptor requires a controller")
	}
	parsed, err := url.Parse(strings.TrimRight(upstream, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("upstream must be http or https, got %q", parsed.Scheme)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	// Redirects are returned to the caller as-is; a 3xx is never
	// admitted to the dynamic store.
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Interceptor{
		ctrl:     ctrl,
		client:   client,
		upstream: parsed,
		logger:   logging.NewComponentLogger(logger, "interceptor"),
	}, nil
}

func (i *Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := i.logger.With(logging.String(logging.FieldRequestID, requestID))

	// Non-GET requests and non-HTTP(S) absolute-form requests are not
	// intercepted: no store lookup, no store write.
	if r.Method != http.MethodGet || !interceptableScheme(r.URL) {
		i.passthrough(w, r, log)
		return
	}

	key := cacheKey(r.URL)

	entry, found, err := i.ctrl.Store().Lookup(r.Context(), i.ctrl.LookupOrder(), key)
	if err != nil {
		log.Warn("cache lookup failed",
			logging.String(logging.FieldURL, key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "request falls through to the network"))
	}
	if found {
		log.Debug("cache hit", logging.String(logging.FieldURL, key))
		writeEntry(w, entry, "HIT")
		return
	}

	resp, err := i.fetch(r)
	if err != nil {
		log.Debug("network fetch failed",
			logging.String(logging.FieldURL, key),
			logging.Error(err))
		i.serveOffline(w, r, key, log)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("upstream body read failed",
			logging.String(logging.FieldURL, key),
			logging.Error(err))
		i.serveOffline(w, r, key, log)
		return
	}

	if i.cacheable(resp) {
		stored := cachestore.Entry{
			URL:       key,
			Status:    resp.StatusCode,
			Header:    resp.Header.Clone(),
			Body:      body,
			FetchedAt: time.Now().UTC(),
		}
		// Fire-and-forget: the response goes back to the caller without
		// waiting for the write, and shutdown waits for it via the
		// controller's write tracking.
		i.ctrl.TrackWrite(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := i.ctrl.Store().Put(ctx, i.ctrl.DynamicStoreName(), stored); err != nil {
				log.Warn("dynamic cache write failed",
					logging.String(logging.FieldURL, key),
					logging.String(logging.FieldStore, i.ctrl.DynamicStoreName()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "response served but not cached"))
			}
		})
	}

	copyHeader(w.Header(), resp.Header)
	w.Header().Set(headerCache, "MISS")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

// fetch issues the intercepted GET against the upstream origin.
func (i *Interceptor) fetch(r *http.Request) (*http.Response, error) {
	target := i.upstream.String() + cacheKey(r.URL)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	stripHopByHop(req.Header)
	return i.client.Do(req)
}

// cacheable applies the dynamic-store admission policy: a complete 200
// response from the configured origin that was not a redirect.
func (i *Interceptor) cacheable(resp *http.Response) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if resp.Request == nil || !i.ctrl.Origin(resp.Request.URL) {
		return false
	}
	return true
}

// passthrough forwards a request verbatim without touching any store.
func (i *Interceptor) passthrough(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	target := i.upstream.String() + r.URL.RequestURI()
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	copyHeader(req.Header, r.Header)
	stripHopByHop(req.Header)

	resp, err := i.client.Do(req)
	if err != nil {
		log.Debug("passthrough failed",
			logging.String(logging.FieldURL, r.URL.RequestURI()),
			logging.String("method", r.Method),
			logging.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func interceptableScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	// Origin-form requests carry no scheme and are HTTP by definition.
	return u.Scheme == "" || u.Scheme == "http" || u.Scheme == "https"
}

func cacheKey(u *url.URL) string {
	key := u.EscapedPath()
	if key == "" {
		key = "/"
	}
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

func writeEntry(w http.ResponseWriter, entry cachestore.Entry, verdict string) {
	copyHeader(w.Header(), entry.Header)
	w.Header().Set(headerCache, verdict)
	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(entry.Body)
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func stripHopByHop(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
