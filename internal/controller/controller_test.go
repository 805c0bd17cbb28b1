package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"shellcache/internal/cachestore"
)

func newTestStore(t *testing.T) *cachestore.Store {
	t.Helper()
	store, err := cachestore.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestController(t *testing.T, store *cachestore.Store, upstream string, opts Options) *Controller {
	t.Helper()
	if opts.Namespace == "" {
		opts.Namespace = "app"
	}
	if opts.Version == "" {
		opts.Version = "v1"
	}
	ctrl, err := New(opts, Deps{Store: store, Upstream: upstream})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl
}

func TestInstallPrecachesManifest(t *testing.T) {
	var sawNoCache bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") == "no-cache" {
			sawNoCache = true
		}
		w.Write([]byte("asset:" + r.URL.Path))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctrl := newTestController(t, store, server.URL, Options{
		StaticManifest: []string{"/", "/app.js"},
	})

	if err := ctrl.Install(context.Background()); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !sawNoCache {
		t.Error("precache fetches should bypass intermediate caches")
	}
	if ctrl.State() != StateWaiting {
		t.Errorf("state = %q, want waiting", ctrl.State())
	}

	keys, err := store.Keys(context.Background(), ctrl.StaticStoreName())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/", "/app.js"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("static store keys = %v, want %v", keys, want)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctrl := newTestController(t, store, server.URL, Options{
		StaticManifest: []string{"/", "/app.js"},
	})

	for i := 0; i < 2; i++ {
		if err := ctrl.Install(context.Background()); err != nil {
			t.Fatalf("Install run %d failed: %v", i, err)
		}
	}

	keys, err := store.Keys(context.Background(), ctrl.StaticStoreName())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("static store should contain exactly the manifest, got %v", keys)
	}
}

func TestInstallSwallowsAssetFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("shell"))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctrl := newTestController(t, store, server.URL, Options{
		StaticManifest: []string{"/", "/a.png"},
	})

	if err := ctrl.Install(context.Background()); err != nil {
		t.Fatalf("install must complete despite asset failure: %v", err)
	}
	if ctrl.State() != StateWaiting {
		t.Errorf("state = %q, want waiting", ctrl.State())
	}

	keys, err := store.Keys(context.Background(), ctrl.StaticStoreName())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "/" {
		t.Errorf("static store keys = %v, want only /", keys)
	}
}

func TestSkipWaitingUnblocksAwaitActivation(t *testing.T) {
	store := newTestStore(t)
	ctrl := newTestController(t, store, "http://origin.test", Options{})

	done := make(chan error, 1)
	go func() {
		done <- ctrl.AwaitActivation(context.Background())
	}()

	ctrl.SkipWaiting()
	ctrl.SkipWaiting() // second call must be a no-op

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AwaitActivation returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitActivation did not unblock after SkipWaiting")
	}
}

func TestInstallWithSkipWaitingConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctrl := newTestController(t, store, server.URL, Options{
		StaticManifest: []string{"/"},
		SkipWaiting:    true,
	})

	if err := ctrl.Install(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctrl.AwaitActivation(ctx); err != nil {
		t.Fatalf("skip_waiting install should not need a control message: %v", err)
	}
}

func TestActivatePurgesOnlyStaleNamespaceStores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []string{
		"app-static-v1",  // stale, same namespace
		"app-dynamic-v1", // stale, same namespace
		"appx-static-v1", // unrelated namespace sharing the prefix
		"other-static-v1",
	}
	for _, name := range seed {
		if err := store.EnsureStore(ctx, name); err != nil {
			t.Fatal(err)
		}
	}

	ctrl := newTestController(t, store, "http://origin.test", Options{Version: "v2"})
	if err := store.EnsureStore(ctx, ctrl.StaticStoreName()); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.Activate(ctx); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if ctrl.State() != StateActive {
		t.Errorf("state = %q, want active", ctrl.State())
	}

	names, err := store.ListStores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, name := range names {
		got[name] = true
	}
	for _, stale := range []string{"app-static-v1", "app-dynamic-v1"} {
		if got[stale] {
			t.Errorf("stale store %q survived activation", stale)
		}
	}
	for _, keep := range []string{"appx-static-v1", "other-static-v1", "app-static-v2", "app-dynamic-v2"} {
		if !got[keep] {
			t.Errorf("store %q should survive activation; have %v", keep, names)
		}
	}
}

func TestCacheURLsAdmitsOnlySuccessfulFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("data"))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctrl := newTestController(t, store, server.URL, Options{})

	stored, err := ctrl.CacheURLs(context.Background(), []string{"/ok", "/missing", ""})
	if err != nil {
		t.Fatalf("CacheURLs failed: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored = %d, want 1", stored)
	}

	keys, err := store.Keys(context.Background(), ctrl.DynamicStoreName())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "/ok" {
		t.Errorf("dynamic store keys = %v, want only /ok", keys)
	}
}

func TestHandleMessageGetVersion(t *testing.T) {
	store := newTestStore(t)
	ctrl := newTestController(t, store, "http://origin.test", Options{Version: "v9"})

	reply, handled := ctrl.HandleMessage(context.Background(), Message{Type: MessageGetVersion})
	if !handled {
		t.Fatal("GET_VERSION should be handled")
	}
	// The version field carries the active static-store name.
	if reply == nil || reply.Version != "app-static-v9" || reply.Type != "VERSION_RESPONSE" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestHandleMessageIgnoresUnknownTypes(t *testing.T) {
	store := newTestStore(t)
	ctrl := newTestController(t, store, "http://origin.test", Options{})

	reply, handled := ctrl.HandleMessage(context.Background(), Message{Type: "REFRESH_EVERYTHING"})
	if handled {
		t.Error("unknown message type must not be reported as handled")
	}
	if reply != nil {
		t.Errorf("unknown message type must not produce a reply, got %+v", reply)
	}
}

func TestDispatchIgnoresUnknownEventKind(t *testing.T) {
	store := newTestStore(t)
	ctrl := newTestController(t, store, "http://origin.test", Options{})

	if err := ctrl.Dispatch(context.Background(), Event{Kind: EventKind("periodicsync")}); err != nil {
		t.Fatalf("unknown event kinds must be ignored, got %v", err)
	}
}

func TestTrackWriteWait(t *testing.T) {
	store := newTestStore(t)
	ctrl := newTestController(t, store, "http://origin.test", Options{})

	done := false
	ctrl.TrackWrite(func() {
		time.Sleep(10 * time.Millisecond)
		done = true
	})
	ctrl.Wait()
	if !done {
		t.Fatal("Wait returned before tracked write completed")
	}
}
