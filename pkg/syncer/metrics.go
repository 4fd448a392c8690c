package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_sync_messages_total",
		Help: "Total inbound protocol messages by type",
	}, []string{"type"})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_sync_broadcasts_total",
		Help: "Total broadcasts published by type",
	}, []string{"type"})

	preloadCities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_preload_cities_total",
		Help: "Total popular-city preload attempts by outcome",
	}, []string{"outcome"})
)
