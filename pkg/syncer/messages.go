package syncer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/and3rn3t/weather-sub008/pkg/searchcache"
)

// Inbound message types (application to cache subsystem).
const (
	MsgCacheSearchResults   = "CACHE_SEARCH_RESULTS"
	MsgClearCache           = "CLEAR_CACHE"
	MsgGetCacheStatus       = "GET_CACHE_STATUS"
	MsgPreloadPopularCities = "PRELOAD_POPULAR_CITIES"
	MsgSkipWaiting          = "SKIP_WAITING"
)

// Outbound broadcast types.
const (
	MsgCacheStatus  = "CACHE_STATUS"
	MsgSyncComplete = "SYNC_COMPLETE"
)

// Envelope wraps every protocol message with an ID for correlation.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope builds an envelope around a payload.
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}

	return env, nil
}

// CacheSearchResultsPayload carries a search result set to be stored.
type CacheSearchResultsPayload struct {
	Query   string                   `json:"query"`
	Results []searchcache.ResultItem `json:"results"`
	Source  searchcache.Source       `json:"source"`
	Meta    searchcache.Meta         `json:"meta"`
}

// ClearCachePayload optionally narrows a clear to one cache type: "search",
// a namespace kind, or empty for everything.
type ClearCachePayload struct {
	CacheType string `json:"cacheType,omitempty"`
}

// PreloadPayload lists the cities to prefetch. An empty list falls back to
// the configured popular-cities set.
type PreloadPayload struct {
	Cities []string `json:"cities"`
}

// CacheStatusPayload is the asynchronous reply to GET_CACHE_STATUS,
// broadcast to all listening contexts.
type CacheStatusPayload struct {
	Caches        []string         `json:"caches"`
	Version       string           `json:"version"`
	Timestamp     int64            `json:"timestamp"`
	Entries       map[string]int64 `json:"entries"`
	SearchRecords int64            `json:"search_records"`
}
