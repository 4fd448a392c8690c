package cachestore

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Unit tests skip when no local
// Redis is available; integration tests use testcontainers-go instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewStore should panic with nil redis client")
		}
	}()
	NewStore(nil)
}

func TestNamespace_Name(t *testing.T) {
	ns := Namespace{Kind: KindAPI, Version: "v2"}
	if got := ns.Name(); got != "weather-api-v2" {
		t.Errorf("Name() = %q, want %q", got, "weather-api-v2")
	}
}

func TestHandle_PutAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	api := store.Open(Namespace{Kind: KindAPI, Version: "v1"})

	key := RequestKey{
		Method: "GET",
		Origin: "https://api.open-meteo.com",
		Path:   "/v1/forecast",
		Query:  url.Values{"latitude": []string{"48.85"}},
	}

	entry := &Entry{
		Data:       []byte(`{"current": {"temperature_2m": 21.5}}`),
		Headers:    map[string]string{"Content-Type": "application/json"},
		StatusCode: 200,
		StoredAt:   time.Now(),
	}

	if err := api.Put(ctx, key, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, err := api.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.Headers["Content-Type"] != "application/json" {
		t.Errorf("Headers mismatch: got %v", retrieved.Headers)
	}
	if retrieved.StatusCode != 200 {
		t.Errorf("StatusCode mismatch: got %d", retrieved.StatusCode)
	}
}

func TestHandle_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	api := store.Open(Namespace{Kind: KindAPI, Version: "v1"})

	_, err := api.Get(ctx, RequestKey{Method: "GET", Path: "/nonexistent"})
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

// Two requests with reordered query parameters must hit the same entry.
func TestHandle_ParameterOrderHitsSameEntry(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	api := store.Open(Namespace{Kind: KindAPI, Version: "v1"})

	key1 := RequestKey{
		Method: "GET",
		Path:   "/v1/forecast",
		Query:  url.Values{"latitude": []string{"48.85"}, "longitude": []string{"2.35"}},
	}
	key2 := RequestKey{
		Method: "GET",
		Path:   "/v1/forecast",
		Query:  url.Values{"longitude": []string{"2.35"}, "latitude": []string{"48.85"}},
	}

	entry := &Entry{Data: []byte(`{"ok": true}`), StatusCode: 200, StoredAt: time.Now()}
	if err := api.Put(ctx, key1, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, err := api.Get(ctx, key2)
	if err != nil {
		t.Fatalf("Get with reordered params failed: %v", err)
	}
	if string(retrieved.Data) != `{"ok": true}` {
		t.Errorf("Data mismatch: got %s", retrieved.Data)
	}
}

func TestHandle_Put_LastWriteWins(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	api := store.Open(Namespace{Kind: KindAPI, Version: "v1"})
	key := RequestKey{Method: "GET", Path: "/v1/forecast"}

	first := &Entry{Data: []byte(`first`), StatusCode: 200, StoredAt: time.Now()}
	second := &Entry{Data: []byte(`second`), StatusCode: 200, StoredAt: time.Now()}

	if err := api.Put(ctx, key, first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := api.Put(ctx, key, second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, err := api.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != "second" {
		t.Errorf("Expected last write to win, got %s", retrieved.Data)
	}
}

func TestStore_ListNamespaces(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	entry := &Entry{Data: []byte(`x`), StatusCode: 200, StoredAt: time.Now()}
	key := RequestKey{Method: "GET", Path: "/x"}

	for _, ns := range []Namespace{
		{Kind: KindStatic, Version: "v1"},
		{Kind: KindAPI, Version: "v1"},
	} {
		if err := store.Open(ns).Put(ctx, key, entry); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	names, err := store.ListNamespaces(ctx)
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("Expected 2 namespaces, got %d: %v", len(names), names)
	}
}

// Bumping the expected version set deletes every namespace not in the new
// set; a subsequent read against a deleted namespace is a clean miss.
func TestStore_EnsureCurrent_VersionBumpEviction(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	entry := &Entry{Data: []byte(`x`), StatusCode: 200, StoredAt: time.Now()}
	key := RequestKey{Method: "GET", Path: "/app.js"}

	oldStatic := Namespace{Kind: KindStatic, Version: "v1"}
	oldAPI := Namespace{Kind: KindAPI, Version: "v1"}
	if err := store.Open(oldStatic).Put(ctx, key, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Open(oldAPI).Put(ctx, key, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Activation with bumped versions
	newStatic := Namespace{Kind: KindStatic, Version: "v2"}
	newAPI := Namespace{Kind: KindAPI, Version: "v2"}
	removed, err := store.EnsureCurrent(ctx, []Namespace{newStatic, newAPI})
	if err != nil {
		t.Fatalf("EnsureCurrent failed: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Expected 2 namespaces removed, got %d: %v", len(removed), removed)
	}

	// Read against deleted namespace is a clean miss, not an error
	_, err = store.Open(oldStatic).Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after eviction, got %v", err)
	}

	names, err := store.ListNamespaces(ctx)
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected no registered namespaces after sweep, got %v", names)
	}
}

func TestStore_EnsureCurrent_KeepsCurrent(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	current := Namespace{Kind: KindAPI, Version: "v2"}
	key := RequestKey{Method: "GET", Path: "/v1/forecast"}
	entry := &Entry{Data: []byte(`keep`), StatusCode: 200, StoredAt: time.Now()}

	if err := store.Open(current).Put(ctx, key, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.EnsureCurrent(ctx, []Namespace{current})
	if err != nil {
		t.Fatalf("EnsureCurrent failed: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Expected nothing removed, got %v", removed)
	}

	retrieved, err := store.Open(current).Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after sweep failed: %v", err)
	}
	if string(retrieved.Data) != "keep" {
		t.Errorf("Entry lost by sweep: %s", retrieved.Data)
	}
}

func TestStore_EntryCount(t *testing.T) {
	client := setupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	ns := Namespace{Kind: KindImage, Version: "v1"}
	h := store.Open(ns)
	entry := &Entry{Data: []byte(`img`), StatusCode: 200, StoredAt: time.Now()}

	for _, p := range []string{"/a.png", "/b.png", "/c.png"} {
		if err := h.Put(ctx, RequestKey{Method: "GET", Path: p}, entry); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	count, err := store.EntryCount(ctx, ns.Name())
	if err != nil {
		t.Fatalf("EntryCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("EntryCount = %d, want 3", count)
	}
}
