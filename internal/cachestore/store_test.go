package cachestore

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureStore(ctx, "app.static.v1"); err != nil {
		t.Fatalf("EnsureStore failed: %v", err)
	}

	entry := Entry{
		URL:    "/index.html",
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:   []byte("<html></html>"),
	}
	if err := store.Put(ctx, "app.static.v1", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := store.Get(ctx, "app.static.v1", "/index.html")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("entry not found after Put")
	}
	if got.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", got.Status)
	}
	if got.ContentType() != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", got.ContentType())
	}
	if string(got.Body) != "<html></html>" {
		t.Errorf("body = %q", got.Body)
	}
	if got.FetchedAt.IsZero() {
		t.Error("fetched_at should be populated")
	}
}

func TestPutReplacesWholeEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureStore(ctx, "app.dynamic.v1"); err != nil {
		t.Fatal(err)
	}
	first := Entry{URL: "/x.json", Status: 200, Body: []byte(`{"v":1}`)}
	second := Entry{URL: "/x.json", Status: 200, Body: []byte(`{"v":2}`)}
	if err := store.Put(ctx, "app.dynamic.v1", first); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "app.dynamic.v1", second); err != nil {
		t.Fatal(err)
	}

	got, _, err := store.Get(ctx, "app.dynamic.v1", "/x.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Body) != `{"v":2}` {
		t.Errorf("last write should win, got %q", got.Body)
	}
	count, err := store.Count(ctx, "app.dynamic.v1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (no duplicates)", count)
	}
}

func TestLookupOrdersStores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"app.static.v1", "app.dynamic.v1"} {
		if err := store.EnsureStore(ctx, name); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Put(ctx, "app.static.v1", Entry{URL: "/", Status: 200, Body: []byte("static")}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "app.dynamic.v1", Entry{URL: "/", Status: 200, Body: []byte("dynamic")}); err != nil {
		t.Fatal(err)
	}

	got, found, err := store.Lookup(ctx, []string{"app.static.v1", "app.dynamic.v1"}, "/")
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if string(got.Body) != "static" {
		t.Errorf("static store should win lookup order, got %q", got.Body)
	}

	_, found, err = store.Lookup(ctx, []string{"app.static.v1"}, "/missing")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("lookup of missing URL should not report found")
	}
}

func TestDeleteStoreCascadesEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureStore(ctx, "app.static.v1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "app.static.v1", Entry{URL: "/", Status: 200, Body: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteStore(ctx, "app.static.v1"); err != nil {
		t.Fatalf("DeleteStore failed: %v", err)
	}

	names, err := store.ListStores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("stores remaining after delete: %v", names)
	}
	count, err := store.Count(ctx, "app.static.v1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("entries should cascade on store delete, found %d", count)
	}
}

func TestDescribeReportsCountsAndSizes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureStore(ctx, "app.static.v1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "app.static.v1", Entry{URL: "/", Status: 200, Body: []byte("12345")}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "app.static.v1", Entry{URL: "/a", Status: 200, Body: []byte("123")}); err != nil {
		t.Fatal(err)
	}

	infos, err := store.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("infos = %v", infos)
	}
	if infos[0].Entries != 2 || infos[0].SizeBytes != 8 {
		t.Errorf("entries=%d size=%d, want 2 and 8", infos[0].Entries, infos[0].SizeBytes)
	}
}

func TestEnsureStoreIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.EnsureStore(ctx, "app.static.v1"); err != nil {
			t.Fatalf("EnsureStore run %d failed: %v", i, err)
		}
	}
	names, err := store.ListStores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("store list = %v, want single entry", names)
	}
}
