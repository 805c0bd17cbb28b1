package cachestore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Entry is a complete cached HTTP response keyed by root-relative URL.
type Entry struct {
	URL       string
	Status    int
	Header    http.Header
	Body      []byte
	FetchedAt time.Time
}

// ContentType returns the entry's Content-Type header, if any.
func (e Entry) ContentType() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.Get("Content-Type")
}

func encodeHeader(h http.Header) ([]byte, error) {
	if h == nil {
		h = http.Header{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}
	return data, nil
}

func decodeHeader(data []byte) (http.Header, error) {
	h := http.Header{}
	if len(data) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	return h, nil
}
