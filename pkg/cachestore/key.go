package cachestore

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// RequestKey identifies a cached response. Two requests that differ only in
// query parameter order produce the same key.
type RequestKey struct {
	// Method is the HTTP method (defaults to GET when empty)
	Method string

	// Origin is scheme://host of the request
	Origin string

	// Path is the URL path (e.g., "/v1/forecast")
	Path string

	// Query holds the query parameters
	Query url.Values
}

// KeyFromRequest builds a RequestKey from an HTTP request.
func KeyFromRequest(req *http.Request) RequestKey {
	origin := ""
	if req.URL.Scheme != "" || req.URL.Host != "" {
		origin = req.URL.Scheme + "://" + req.URL.Host
	}
	return RequestKey{
		Method: req.Method,
		Origin: origin,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
	}
}

// String generates a deterministic key string.
// Format: req:method:origin:path:query1=val1:query2=val2
//
// Example:
//
//	req:GET:https://api.open-meteo.com:v1/forecast:latitude=48.85:longitude=2.35
func (k RequestKey) String() string {
	method := k.Method
	if method == "" {
		method = http.MethodGet
	}

	parts := []string{"req", strings.ToUpper(method)}

	if k.Origin != "" {
		parts = append(parts, k.Origin)
	}

	// Add path (normalize)
	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Add query params (sorted for determinism)
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.Query[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
