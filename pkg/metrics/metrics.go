// Package metrics provides the central Prometheus registry reference for the
// cache subsystem. All metrics are defined in their respective packages
// (cachestore, fetcher, router, searchcache, connectivity, syncer) to
// maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the cache subsystem.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Store Metrics (pkg/cachestore):
//   - weather_cache_hits_total{namespace} (Counter): Cache hits by namespace
//   - weather_cache_misses_total{namespace} (Counter): Cache misses by namespace
//   - weather_cache_size_bytes{namespace} (Gauge): Bytes written by namespace
//   - weather_cache_namespace_purges_total (Counter): Namespaces deleted by version sweeps
//   - weather_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fetcher Metrics (pkg/fetcher):
//   - weather_fetch_requests_total{outcome} (Counter): Fetches by status/timeout/network_error
//   - weather_fetch_duration_seconds (Histogram): Fetch duration
//   - weather_fetch_timeouts_total (Counter): Fetches aborted by the deadline
//   - weather_fetch_retries_total (Counter): Retry attempts
//   - weather_fetch_retry_exhausted_total (Counter): Requests that exhausted retries
//
// Router Metrics (pkg/router):
//   - weather_router_requests_total{class, status} (Counter): Routed requests
//   - weather_router_fallbacks_total{class} (Counter): Cache fallbacks after network failure
//   - weather_router_synthetic_responses_total{class} (Counter): Synthetic offline responses
//
// Search Cache Metrics (pkg/searchcache):
//   - weather_search_cache_hits_total (Counter): Record hits
//   - weather_search_cache_misses_total (Counter): Record misses
//   - weather_search_cache_expirations_total (Counter): Records lazily evicted on read
//   - weather_search_cache_writes_total{source} (Counter): Record writes by source
//   - weather_search_cache_clears_total (Counter): Full clears
//   - weather_search_cache_errors_total{operation} (Counter): Operation errors
//
// Connectivity Metrics (pkg/connectivity):
//   - weather_connectivity_online (Gauge): 1 while the link is considered up
//   - weather_connectivity_transitions_total{direction} (Counter): State transitions
//
// Sync Coordinator Metrics (pkg/syncer):
//   - weather_sync_messages_total{type} (Counter): Inbound protocol messages
//   - weather_sync_broadcasts_total{type} (Counter): Broadcasts published
//   - weather_preload_cities_total{outcome} (Counter): Popular-city preload attempts
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(weather_cache_hits_total[5m])) /
//   (sum(rate(weather_cache_hits_total[5m])) + sum(rate(weather_cache_misses_total[5m])))
//
//   # Offline Fallback Rate
//   rate(weather_router_fallbacks_total[5m]) / rate(weather_router_requests_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(weather_fetch_duration_seconds_bucket[5m]))
//
//   # Connectivity Flaps
//   increase(weather_connectivity_transitions_total[1h])
