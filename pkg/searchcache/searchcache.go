// Package searchcache provides a durable, TTL-governed store of prior search
// results keyed by normalized query, with dedup-on-write semantics.
//
// The cache is a client-local convenience layer, not a system of record.
// Storage failures must never fail a search: callers treat any error from
// this API as "no cache available" and fall through to a live network call.
// Concurrent writes for the same query are last-write-wins; expiry is lazy,
// performed as a side effect of reads rather than by a background sweep.
package searchcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/and3rn3t/weather-sub008/pkg/logging"
)

const (
	recordKeyPrefix = "search:record:"
	queryIndexKey   = "search:queries"
)

// Config holds the per-class expiry policy.
type Config struct {
	// APITTL expires records written from live API responses.
	APITTL time.Duration

	// PrefetchTTL expires records written by the popular-city preload.
	PrefetchTTL time.Duration
}

// DefaultConfig returns the default expiry policy.
func DefaultConfig() Config {
	return Config{
		APITTL:      12 * time.Hour,
		PrefetchTTL: 24 * time.Hour,
	}
}

// Cache is a Redis-backed search result cache.
type Cache struct {
	redis  *redis.Client
	cfg    Config
	logger zerolog.Logger

	// now is injectable for expiry tests.
	now func() time.Time

	mu          sync.Mutex
	initialized bool
}

// New creates a search cache. Zero config fields fall back to defaults.
func New(redisClient *redis.Client, cfg Config) *Cache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.APITTL <= 0 {
		cfg.APITTL = DefaultConfig().APITTL
	}
	if cfg.PrefetchTTL <= 0 {
		cfg.PrefetchTTL = DefaultConfig().PrefetchTTL
	}
	return &Cache{
		redis:  redisClient,
		cfg:    cfg,
		logger: logging.NewLogger("search-cache"),
		now:    time.Now,
	}
}

// Initialize verifies the durable store is reachable. It is idempotent and
// safe to call multiple times.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if err := c.redis.Ping(ctx).Err(); err != nil {
		searchErrors.WithLabelValues("initialize").Inc()
		return fmt.Errorf("search cache initialize: %w", err)
	}

	c.initialized = true
	c.logger.Debug().Msg("Search cache initialized")
	return nil
}

func recordKey(normalized string) string {
	return recordKeyPrefix + normalized
}

// CacheSearchResults stores results under the normalized form of query.
// Writes are upserts: a second write for the same query replaces the first,
// so at most one record exists per normalized query even under rapid repeated
// writes (e.g. a prefetch followed immediately by a live API response).
func (c *Cache) CacheSearchResults(ctx context.Context, query string, results []ResultItem, source Source, meta Meta) error {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return fmt.Errorf("query cannot be empty")
	}

	record := Record{
		NormalizedQuery: normalized,
		Results:         results,
		Source:          source,
		ResponseTimeMs:  meta.ResponseTimeMs,
		StoredAt:        c.now(),
		TTLClass:        classForSource(source),
	}

	data, err := json.Marshal(record)
	if err != nil {
		searchErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("marshal search record: %w", err)
	}

	// Safety-net expiry at twice the class TTL; lazy eviction on read is the
	// authoritative expiry path.
	pipe := c.redis.TxPipeline()
	pipe.Set(ctx, recordKey(normalized), data, 2*c.ttlFor(record.TTLClass))
	pipe.SAdd(ctx, queryIndexKey, normalized)
	if _, err := pipe.Exec(ctx); err != nil {
		searchErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("store search record: %w", err)
	}

	searchWrites.WithLabelValues(string(source)).Inc()
	c.logger.Debug().
		Str("query", normalized).
		Str("source", string(source)).
		Int("results", len(results)).
		Msg("Search results cached")

	return nil
}

// GetCachedResults looks up the record for the normalized form of query.
// Expired records are deleted as a side effect of the read and nil is
// returned; there is no background sweep. A miss returns (nil, nil).
func (c *Cache) GetCachedResults(ctx context.Context, query string) (*Record, error) {
	normalized := NormalizeQuery(query)

	data, err := c.redis.Get(ctx, recordKey(normalized)).Bytes()
	if err != nil {
		if err == redis.Nil {
			searchMisses.Inc()
			return nil, nil
		}
		searchErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("read search record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		searchErrors.WithLabelValues("read").Inc()
		// Corrupted record: drop it and report a miss.
		c.deleteRecord(ctx, normalized)
		return nil, fmt.Errorf("decode search record: %w", err)
	}

	if c.now().Sub(record.StoredAt) > c.ttlFor(record.TTLClass) {
		c.deleteRecord(ctx, normalized)
		searchExpirations.Inc()
		c.logger.Debug().
			Str("query", normalized).
			Str("ttl_class", string(record.TTLClass)).
			Time("stored_at", record.StoredAt).
			Msg("Expired search record evicted")
		return nil, nil
	}

	searchHits.Inc()
	return &record, nil
}

// ClearCache deletes all records. Used by explicit user-triggered cache
// resets.
func (c *Cache) ClearCache(ctx context.Context) error {
	queries, err := c.redis.SMembers(ctx, queryIndexKey).Result()
	if err != nil {
		searchErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("list search records: %w", err)
	}

	keys := make([]string, 0, len(queries)+1)
	for _, q := range queries {
		keys = append(keys, recordKey(q))
	}
	keys = append(keys, queryIndexKey)

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		searchErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("clear search records: %w", err)
	}

	searchClears.Inc()
	c.logger.Info().Int("records", len(queries)).Msg("Search cache cleared")
	return nil
}

// RecordCount returns the number of stored records.
func (c *Cache) RecordCount(ctx context.Context) (int64, error) {
	count, err := c.redis.SCard(ctx, queryIndexKey).Result()
	if err != nil {
		searchErrors.WithLabelValues("count").Inc()
		return 0, fmt.Errorf("count search records: %w", err)
	}
	return count, nil
}

func (c *Cache) deleteRecord(ctx context.Context, normalized string) {
	pipe := c.redis.TxPipeline()
	pipe.Del(ctx, recordKey(normalized))
	pipe.SRem(ctx, queryIndexKey, normalized)
	if _, err := pipe.Exec(ctx); err != nil {
		searchErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("query", normalized).Msg("Failed to delete search record")
	}
}

// SetNow overrides the clock (for testing).
func (c *Cache) SetNow(now func() time.Time) {
	c.now = now
}

func (c *Cache) ttlFor(class TTLClass) time.Duration {
	if class == TTLClassPrefetch {
		return c.cfg.PrefetchTTL
	}
	return c.cfg.APITTL
}
