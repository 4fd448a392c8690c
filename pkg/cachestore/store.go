package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/and3rn3t/weather-sub008/pkg/logging"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrStoreUnavailable indicates the backing store could not be reached
	ErrStoreUnavailable = errors.New("cache store unavailable")

	// ErrQuotaExceeded indicates the backing store rejected a write for lack of space
	ErrQuotaExceeded = errors.New("cache quota exceeded")
)

// Kind identifies the role of a cache namespace.
type Kind string

const (
	// KindStatic holds application shell assets (scripts, styles, fonts).
	KindStatic Kind = "static"

	// KindAPI holds upstream API responses.
	KindAPI Kind = "api"

	// KindImage holds image payloads.
	KindImage Kind = "image"

	// KindSearch holds the search result index.
	KindSearch Kind = "search"
)

// Namespace is a named, versioned cache partition.
type Namespace struct {
	Kind    Kind
	Version string
}

// Name returns the storage name of the namespace, e.g. "weather-api-v2".
func (n Namespace) Name() string {
	return fmt.Sprintf("weather-%s-%s", n.Kind, n.Version)
}

const (
	// namespaceRegistry is the Redis set tracking every namespace that has
	// received at least one write.
	namespaceRegistry = "cache:namespaces"

	// entryKeyPrefix prefixes every stored entry key.
	entryKeyPrefix = "cache:"
)

// Store handles namespaced caching operations with a Redis backend.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a new cache store with Redis backend.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		logger: logging.NewLogger("cache-store"),
	}
}

// Open returns a handle bound to the given namespace. Opening does not touch
// the backend; the namespace is registered on first write.
func (s *Store) Open(ns Namespace) *Handle {
	return &Handle{store: s, ns: ns}
}

// Handle is a Store scoped to a single namespace.
type Handle struct {
	store *Store
	ns    Namespace
}

// Namespace returns the namespace this handle is bound to.
func (h *Handle) Namespace() Namespace {
	return h.ns
}

func entryKey(namespace, key string) string {
	return entryKeyPrefix + namespace + ":" + key
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (h *Handle) Get(ctx context.Context, key RequestKey) (*Entry, error) {
	name := h.ns.Name()

	data, err := h.store.redis.Get(ctx, entryKey(name, key.String())).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(name).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: get: %v", ErrStoreUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues(name).Inc()
	return &entry, nil
}

// Put stores a cache entry. Writes are last-write-wins: a second Put for the
// same key replaces the first.
func (h *Handle) Put(ctx context.Context, key RequestKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	name := h.ns.Name()

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	pipe := h.store.redis.TxPipeline()
	pipe.Set(ctx, entryKey(name, key.String()), data, 0)
	pipe.SAdd(ctx, namespaceRegistry, name)
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return classifyStoreError("put", err)
	}

	CacheSize.WithLabelValues(name).Add(float64(len(data)))
	return nil
}

// Delete removes a single cache entry.
func (h *Handle) Delete(ctx context.Context, key RequestKey) error {
	name := h.ns.Name()

	if err := h.store.redis.Del(ctx, entryKey(name, key.String())).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return classifyStoreError("delete", err)
	}

	return nil
}

// ListNamespaces returns the names of all namespaces that have received writes.
func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	names, err := s.redis.SMembers(ctx, namespaceRegistry).Result()
	if err != nil {
		CacheErrors.WithLabelValues("list").Inc()
		return nil, classifyStoreError("list namespaces", err)
	}
	return names, nil
}

// DeleteNamespace removes a namespace and all of its entries.
// Deletion is irreversible.
func (s *Store) DeleteNamespace(ctx context.Context, name string) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, entryKey(name, "*"), 200).Result()
		if err != nil {
			CacheErrors.WithLabelValues("purge").Inc()
			return classifyStoreError("scan namespace", err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				CacheErrors.WithLabelValues("purge").Inc()
				return classifyStoreError("delete namespace entries", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := s.redis.SRem(ctx, namespaceRegistry, name).Err(); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return classifyStoreError("deregister namespace", err)
	}

	NamespacePurges.Inc()
	s.logger.Info().Str("namespace", name).Msg("Namespace deleted")
	return nil
}

// EntryCount returns the number of entries stored in a namespace.
func (s *Store) EntryCount(ctx context.Context, name string) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, entryKey(name, "*"), 200).Result()
		if err != nil {
			return 0, classifyStoreError("count namespace", err)
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// EnsureCurrent deletes every registered namespace that is not in the current
// expected set and returns the names it removed. This is the versioned-cache
// eviction path: each namespace is deleted independently, so a crash mid-sweep
// leaves at most one extra stale namespace until the next activation.
func (s *Store) EnsureCurrent(ctx context.Context, current []Namespace) ([]string, error) {
	expected := make(map[string]bool, len(current))
	for _, ns := range current {
		expected[ns.Name()] = true
	}

	names, err := s.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range names {
		if expected[name] {
			continue
		}
		if err := s.DeleteNamespace(ctx, name); err != nil {
			s.logger.Warn().Err(err).Str("namespace", name).Msg("Failed to delete stale namespace")
			continue
		}
		removed = append(removed, name)
	}

	if len(removed) > 0 {
		s.logger.Info().Strs("removed", removed).Msg("Stale namespaces purged")
	}

	return removed, nil
}

// classifyStoreError maps backend errors onto the store error taxonomy.
func classifyStoreError(op string, err error) error {
	if strings.Contains(err.Error(), "OOM") {
		return fmt.Errorf("%w: %s: %v", ErrQuotaExceeded, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
