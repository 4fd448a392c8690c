package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by namespace
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_hits_total",
			Help: "Total number of cache hits by namespace",
		},
		[]string{"namespace"},
	)

	// CacheMisses tracks cache misses by namespace
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_misses_total",
			Help: "Total number of cache misses by namespace",
		},
		[]string{"namespace"},
	)

	// CacheSize tracks bytes written by namespace
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_cache_size_bytes",
			Help: "Bytes written to the cache by namespace",
		},
		[]string{"namespace"},
	)

	// NamespacePurges tracks namespaces deleted by version sweeps
	NamespacePurges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_cache_namespace_purges_total",
			Help: "Total number of namespaces deleted by version sweeps",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete", "list", "purge"
	)
)
