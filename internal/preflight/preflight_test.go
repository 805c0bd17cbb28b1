package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Errorf("writable temp dir should pass: %+v", result)
	}

	result = CheckDirectoryAccess("Data directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Errorf("missing dir should fail: %+v", result)
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Errorf("detail should explain the failure: %q", result.Detail)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace("Cache volume", t.TempDir(), 1)
	if !result.Passed {
		t.Errorf("1-byte floor should pass: %+v", result)
	}
}

func TestCheckUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result := CheckUpstream(context.Background(), server.URL)
	if !result.Passed {
		t.Errorf("reachable upstream should pass: %+v", result)
	}

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()
	result = CheckUpstream(context.Background(), deadURL)
	if result.Passed {
		t.Errorf("dead upstream should fail: %+v", result)
	}
}
