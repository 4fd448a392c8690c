package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_router_requests_total",
		Help: "Total routed requests by class and status",
	}, []string{"class", "status"})

	routerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_router_fallbacks_total",
		Help: "Total requests that fell back to cache after a network failure",
	}, []string{"class"})

	routerSynthetic = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_router_synthetic_responses_total",
		Help: "Total synthetic offline responses served",
	}, []string{"class"})
)
