package router

import (
	"encoding/json"
	"time"
)

// Provenance values for the _meta.source field.
const (
	SourceNetwork  = "network"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Meta is the provenance block attached to every API passthrough body so the
// application can always tell whether data is live or stale.
type Meta struct {
	Cached    bool   `json:"cached"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
	Offline   bool   `json:"offline,omitempty"`
}

func networkMeta() Meta {
	return Meta{
		Cached:    false,
		Timestamp: time.Now().UnixMilli(),
		Source:    SourceNetwork,
	}
}

func cacheMeta(storedAt time.Time) Meta {
	return Meta{
		Cached:    true,
		Timestamp: storedAt.UnixMilli(),
		Source:    SourceCache,
		Offline:   true,
	}
}

// annotateJSON injects a _meta block into a JSON body. Object bodies are
// annotated in place; array and scalar bodies are wrapped under "data".
// Bodies that do not parse as JSON are returned unchanged.
func annotateJSON(body []byte, meta Meta) []byte {
	// A body of JSON null unmarshals into a nil map without error; it takes
	// the wrap path below like any other non-object body.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		metaRaw, err := json.Marshal(meta)
		if err != nil {
			return body
		}
		obj["_meta"] = metaRaw
		annotated, err := json.Marshal(obj)
		if err != nil {
			return body
		}
		return annotated
	}

	var any json.RawMessage
	if err := json.Unmarshal(body, &any); err != nil {
		return body
	}

	wrapped, err := json.Marshal(map[string]interface{}{
		"data":  any,
		"_meta": meta,
	})
	if err != nil {
		return body
	}
	return wrapped
}

// offlineBody builds the structured offline-error payload served with HTTP
// 503 when neither the network nor the cache can satisfy an API request.
func offlineBody(message string) []byte {
	now := time.Now().UnixMilli()
	body, _ := json.Marshal(map[string]interface{}{
		"error":     "offline",
		"message":   message,
		"timestamp": now,
		"data":      nil,
		"_meta": Meta{
			Cached:    false,
			Timestamp: now,
			Source:    SourceFallback,
			Offline:   true,
		},
	})
	return body
}
