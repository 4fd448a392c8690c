package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_fetch_requests_total",
		Help: "Total outbound fetches by outcome (status code, timeout, network_error)",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_fetch_duration_seconds",
		Help:    "Outbound fetch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 8, 10},
	})

	fetchTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_timeouts_total",
		Help: "Total fetches aborted by the hard deadline",
	})

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_retries_total",
		Help: "Total retry attempts",
	})

	fetchRetryExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_retry_exhausted_total",
		Help: "Total requests that exhausted all retry attempts",
	})
)
