package cachestore

import (
	"time"
)

// Entry represents a cached response payload.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// Headers are the response headers (flattened, first value wins)
	Headers map[string]string `json:"headers"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// StoredAt is when this entry was written
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// ContentType returns the cached Content-Type header, if any.
func (e *Entry) ContentType() string {
	return e.Headers["Content-Type"]
}
