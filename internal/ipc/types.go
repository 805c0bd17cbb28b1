package ipc

import (
	"encoding/json"
	"time"
)

// StartRequest brings the daemon through install and activation.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/controller status.
type StatusResponse struct {
	Running        bool   `json:"running"`
	State          string `json:"state"`
	Version        string `json:"version"`
	StaticStore    string `json:"static_store"`
	DynamicStore   string `json:"dynamic_store"`
	StaticEntries  int    `json:"static_entries"`
	DynamicEntries int    `json:"dynamic_entries"`
	Listen         string `json:"listen"`
	Upstream       string `json:"upstream"`
	DBPath         string `json:"db_path"`
	LockPath       string `json:"lock_path"`
	PID            int    `json:"pid"`
	InstanceID     string `json:"instance_id"`
}

// GetVersionRequest asks the controller for its deployment version.
type GetVersionRequest struct{}

// GetVersionResponse carries the VERSION_RESPONSE reply.
type GetVersionResponse struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// SkipWaitingRequest promotes the controller past the waiting phase.
type SkipWaitingRequest struct{}

// SkipWaitingResponse confirms the promotion request was delivered.
type SkipWaitingResponse struct {
	Requested bool   `json:"requested"`
	State     string `json:"state"`
}

// CacheURLsRequest caches the given URLs into the dynamic store.
type CacheURLsRequest struct {
	URLs []string `json:"urls"`
}

// CacheURLsResponse reports how many URLs were stored.
type CacheURLsResponse struct {
	Stored    int `json:"stored"`
	Requested int `json:"requested"`
}

// MessageRequest delivers a raw control message to the controller.
type MessageRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageResponse reports whether the message type was recognized and
// carries the controller's reply when one was produced.
type MessageResponse struct {
	Handled bool   `json:"handled"`
	Type    string `json:"type,omitempty"`
	Version string `json:"version,omitempty"`
	Stored  int    `json:"stored,omitempty"`
}

// PushRequest delivers a push payload to the notification handler.
type PushRequest struct {
	Payload []byte `json:"payload"`
}

// PushResponse reports push delivery outcome.
type PushResponse struct {
	Delivered bool   `json:"delivered"`
	Message   string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StoreListRequest lists named cache stores.
type StoreListRequest struct{}

// StoreSummary describes one named cache store.
type StoreSummary struct {
	Name      string    `json:"name"`
	Entries   int       `json:"entries"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// StoreListResponse contains store summaries.
type StoreListResponse struct {
	Stores []StoreSummary `json:"stores"`
}

// StoreEntriesRequest fetches entries of a single named store.
type StoreEntriesRequest struct {
	Store string `json:"store"`
}

// EntrySummary is a lightweight wire view of a cached response.
type EntrySummary struct {
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// StoreEntriesResponse contains entry summaries for one store.
type StoreEntriesResponse struct {
	Store   string         `json:"store"`
	Entries []EntrySummary `json:"entries"`
}
