package searchcache

import (
	"strings"
	"time"
)

// Source identifies where a cached search result came from.
type Source string

const (
	// SourceAPI marks results returned by a live geocoding call.
	SourceAPI Source = "api"

	// SourcePrefetch marks results stored by the popular-city preload.
	SourcePrefetch Source = "prefetch"

	// SourceCache marks results re-stored from a cached payload.
	SourceCache Source = "cache"
)

// TTLClass is the expiry policy bucket a record belongs to.
type TTLClass string

const (
	// TTLClassAPI expires live API results (12 hours by default).
	TTLClassAPI TTLClass = "api"

	// TTLClassPrefetch expires preloaded results; its duration is
	// configurable.
	TTLClassPrefetch TTLClass = "prefetch"
)

// ResultItem is a single geocoding result.
type ResultItem struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Meta carries per-write metadata.
type Meta struct {
	ResponseTimeMs int64 `json:"response_time_ms"`
}

// Record is a stored search result set. At most one record exists per
// normalized query; writes for the same query replace the previous record.
type Record struct {
	NormalizedQuery string       `json:"normalized_query"`
	Results         []ResultItem `json:"results"`
	Source          Source       `json:"source"`
	ResponseTimeMs  int64        `json:"response_time_ms"`
	StoredAt        time.Time    `json:"stored_at"`
	TTLClass        TTLClass     `json:"ttl_class"`
}

// NormalizeQuery canonicalizes a search query for use as a cache key:
// surrounding whitespace is trimmed and the query is case-folded.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// classForSource maps a result source onto its expiry bucket.
func classForSource(source Source) TTLClass {
	if source == SourcePrefetch {
		return TTLClassPrefetch
	}
	return TTLClassAPI
}
