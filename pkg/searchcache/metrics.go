package searchcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_search_cache_hits_total",
		Help: "Total search cache hits",
	})

	searchMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_search_cache_misses_total",
		Help: "Total search cache misses",
	})

	searchExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_search_cache_expirations_total",
		Help: "Total records lazily evicted on read",
	})

	searchWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_search_cache_writes_total",
		Help: "Total record writes by source",
	}, []string{"source"})

	searchClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_search_cache_clears_total",
		Help: "Total full cache clears",
	})

	searchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_search_cache_errors_total",
		Help: "Total search cache operation errors",
	}, []string{"operation"})
)
