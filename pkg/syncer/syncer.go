// Package syncer coordinates cache lifecycle events: the activation sweep,
// popular-city prefetch, the inbound message protocol, and connectivity
// broadcasts to open application contexts.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/and3rn3t/weather-sub008/pkg/cachestore"
	"github.com/and3rn3t/weather-sub008/pkg/fetcher"
	"github.com/and3rn3t/weather-sub008/pkg/logging"
	"github.com/and3rn3t/weather-sub008/pkg/searchcache"
)

// DefaultBroadcastChannel is the Redis Pub/Sub channel open contexts listen on.
const DefaultBroadcastChannel = "weather:broadcast"

// Config holds coordinator configuration.
type Config struct {
	// Version is the current cache version reported in status replies.
	Version string

	// Namespaces is the current expected namespace set for the activation
	// sweep.
	Namespaces []cachestore.Namespace

	// PopularCities is the bounded default preload list.
	PopularCities []string

	// GeocodeURL is the upstream geocoding search endpoint.
	GeocodeURL string

	// BroadcastChannel overrides the Pub/Sub channel name.
	BroadcastChannel string

	// PrefetchConcurrency bounds parallel preload fetches (default 3).
	PrefetchConcurrency int

	// Policy bounds preload fetches.
	Policy fetcher.Policy
}

// Coordinator reacts to lifecycle events and re-primes the caches.
type Coordinator struct {
	store   *cachestore.Store
	search  *searchcache.Cache
	fetcher *fetcher.Fetcher
	redis   *redis.Client
	cfg     Config
	logger  zerolog.Logger

	// OnSkipWaiting is invoked for SKIP_WAITING messages; the embedding
	// process decides what "activate immediately" means for it.
	OnSkipWaiting func()
}

// New creates a sync coordinator.
func New(cfg Config, store *cachestore.Store, search *searchcache.Cache, f *fetcher.Fetcher, redisClient *redis.Client) *Coordinator {
	if cfg.BroadcastChannel == "" {
		cfg.BroadcastChannel = DefaultBroadcastChannel
	}
	if cfg.PrefetchConcurrency <= 0 {
		cfg.PrefetchConcurrency = 3
	}
	if cfg.Policy.Timeout <= 0 {
		cfg.Policy = fetcher.DefaultPolicy()
	}
	return &Coordinator{
		store:   store,
		search:  search,
		fetcher: f,
		redis:   redisClient,
		cfg:     cfg,
		logger:  logging.NewLogger("sync-coordinator"),
	}
}

// Activate runs the activation sequence: initialize the search cache, sweep
// stale namespaces, and preload popular cities. Preload failures never block
// activation.
func (c *Coordinator) Activate(ctx context.Context) error {
	if err := c.search.Initialize(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Search cache initialization failed, continuing without it")
	}

	removed, err := c.store.EnsureCurrent(ctx, c.cfg.Namespaces)
	if err != nil {
		return fmt.Errorf("activation sweep: %w", err)
	}

	stored, failed := c.PreloadPopularCities(ctx, c.cfg.PopularCities)

	c.logger.Info().
		Str("version", c.cfg.Version).
		Strs("purged", removed).
		Int("preloaded", stored).
		Int("preload_failures", failed).
		Msg("Activation complete")

	return nil
}

// HandleMessage dispatches one inbound protocol message. Every message is
// fire-and-forget except GET_CACHE_STATUS, which replies asynchronously via
// broadcast. Storage failures are logged, not returned: the cache subsystem
// must never fail the caller.
func (c *Coordinator) HandleMessage(ctx context.Context, env Envelope) error {
	messagesTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case MsgCacheSearchResults:
		var p CacheSearchResultsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		if err := c.search.CacheSearchResults(ctx, p.Query, p.Results, p.Source, p.Meta); err != nil {
			c.logger.Warn().Err(err).Str("query", p.Query).Msg("Failed to cache search results")
		}
		return nil

	case MsgClearCache:
		var p ClearCachePayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return fmt.Errorf("decode %s: %w", env.Type, err)
			}
		}
		return c.clearCache(ctx, p.CacheType)

	case MsgGetCacheStatus:
		status, err := c.cacheStatus(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to build cache status")
			return nil
		}
		reply, err := NewEnvelope(MsgCacheStatus, status)
		if err != nil {
			return err
		}
		return c.Broadcast(ctx, reply)

	case MsgPreloadPopularCities:
		var p PreloadPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return fmt.Errorf("decode %s: %w", env.Type, err)
			}
		}
		cities := p.Cities
		if len(cities) == 0 {
			cities = c.cfg.PopularCities
		}
		c.PreloadPopularCities(ctx, cities)
		return nil

	case MsgSkipWaiting:
		if c.OnSkipWaiting != nil {
			c.OnSkipWaiting()
		}
		return nil

	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
}

// clearCache clears the search cache, one namespace kind, or everything.
func (c *Coordinator) clearCache(ctx context.Context, cacheType string) error {
	if cacheType == "" || cacheType == "search" {
		if err := c.search.ClearCache(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear search cache")
		}
		if cacheType == "search" {
			return nil
		}
	}

	names, err := c.store.ListNamespaces(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to list namespaces for clear")
		return nil
	}

	prefix := "weather-" + cacheType + "-"
	for _, name := range names {
		if cacheType != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := c.store.DeleteNamespace(ctx, name); err != nil {
			c.logger.Warn().Err(err).Str("namespace", name).Msg("Failed to clear namespace")
		}
	}

	return nil
}

// cacheStatus collects namespace names, per-namespace entry counts, and the
// search record count.
func (c *Coordinator) cacheStatus(ctx context.Context) (*CacheStatusPayload, error) {
	names, err := c.store.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]int64, len(names))
	for _, name := range names {
		count, err := c.store.EntryCount(ctx, name)
		if err != nil {
			c.logger.Warn().Err(err).Str("namespace", name).Msg("Failed to count namespace entries")
			continue
		}
		entries[name] = count
	}

	records, err := c.search.RecordCount(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to count search records")
	}

	return &CacheStatusPayload{
		Caches:        names,
		Version:       c.cfg.Version,
		Timestamp:     time.Now().UnixMilli(),
		Entries:       entries,
		SearchRecords: records,
	}, nil
}

// Broadcast publishes an envelope to all listening contexts.
func (c *Coordinator) Broadcast(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	if err := c.redis.Publish(ctx, c.cfg.BroadcastChannel, data).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}

	broadcastsTotal.WithLabelValues(env.Type).Inc()
	return nil
}

// NotifySyncComplete broadcasts that connectivity was restored. The
// coordinator only signals opportunity; listening contexts decide whether to
// re-fetch stale views.
func (c *Coordinator) NotifySyncComplete(ctx context.Context) {
	env, err := NewEnvelope(MsgSyncComplete, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to build sync broadcast")
		return
	}
	if err := c.Broadcast(ctx, env); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to broadcast sync complete")
		return
	}
	c.logger.Info().Msg("Sync complete broadcast sent")
}

// Subscribe returns a channel of broadcast envelopes. The channel closes when
// ctx is cancelled. Intended for application contexts and tests.
func (c *Coordinator) Subscribe(ctx context.Context) <-chan Envelope {
	sub := c.redis.Subscribe(ctx, c.cfg.BroadcastChannel)
	out := make(chan Envelope)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					c.logger.Warn().Err(err).Msg("Dropping malformed broadcast")
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
