package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/and3rn3t/weather-sub008/internal/config"
	"github.com/and3rn3t/weather-sub008/pkg/cachestore"
	"github.com/and3rn3t/weather-sub008/pkg/connectivity"
	"github.com/and3rn3t/weather-sub008/pkg/fetcher"
	"github.com/and3rn3t/weather-sub008/pkg/logging"
	"github.com/and3rn3t/weather-sub008/pkg/router"
	"github.com/and3rn3t/weather-sub008/pkg/searchcache"
	"github.com/and3rn3t/weather-sub008/pkg/syncer"
)

func main() {
	configPath := flag.String("config", "weather.toml", "path to TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	// Cache layers
	store := cachestore.NewStore(redisClient)
	static := store.Open(cachestore.Namespace{Kind: cachestore.KindStatic, Version: cfg.Cache.Version})
	api := store.Open(cachestore.Namespace{Kind: cachestore.KindAPI, Version: cfg.Cache.Version})
	images := store.Open(cachestore.Namespace{Kind: cachestore.KindImage, Version: cfg.Cache.Version})

	search := searchcache.New(redisClient, searchcache.Config{
		APITTL:      cfg.APITTL(),
		PrefetchTTL: cfg.PrefetchTTL(),
	})

	tracker := connectivity.NewTracker(redisClient, logging.NewLogger("connectivity"))

	policy := fetcher.Policy{
		Timeout:     cfg.FetchTimeout(),
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BaseDelay:   cfg.FetchBaseDelay(),
	}
	f := fetcher.New()

	rt := router.New(router.Config{
		APIHosts: cfg.Fetch.APIHosts,
		Policy:   policy,
	}, f, static, api, images, tracker)

	coordinator := syncer.New(syncer.Config{
		Version: cfg.Cache.Version,
		Namespaces: []cachestore.Namespace{
			{Kind: cachestore.KindStatic, Version: cfg.Cache.Version},
			{Kind: cachestore.KindAPI, Version: cfg.Cache.Version},
			{Kind: cachestore.KindImage, Version: cfg.Cache.Version},
		},
		PopularCities:       cfg.Preload.Cities,
		GeocodeURL:          cfg.Fetch.GeocodeURL,
		PrefetchConcurrency: cfg.Preload.Concurrency,
		Policy:              policy,
	}, store, search, f, redisClient)

	// A recovered fetch after consecutive failures means cached views may be
	// stale; tell listening contexts.
	rt.OnConnectivityRestored = func() {
		coordinator.NotifySyncComplete(context.Background())
	}

	if err := coordinator.Activate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Activation failed")
	}

	// HTTP Server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/sync", syncHandler(coordinator))
	mux.HandleFunc("/fetch", fetchHandler(rt))

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("version", cfg.Cache.Version).Msg("Starting weather cache proxy")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// syncHandler accepts one protocol envelope per POST and dispatches it to the
// coordinator. Replies (cache status, sync events) arrive via broadcast, not
// on this response.
func syncHandler(coordinator *syncer.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var env syncer.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, fmt.Sprintf("invalid envelope: %v", err), http.StatusBadRequest)
			return
		}

		if err := coordinator.HandleMessage(r.Context(), env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// fetchHandler resolves the target from the url query parameter and serves it
// through the cache router. Whatever the router decides (network, cache,
// offline fallback) is copied back verbatim.
func fetchHandler(rt *router.Router) http.HandlerFunc {
	logger := logging.NewLogger("server")
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid url: %v", err), http.StatusBadRequest)
			return
		}

		resp := rt.Handle(r.Context(), req)
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}
