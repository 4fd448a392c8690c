package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
	}
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := f.Do(context.Background(), req, testPolicy())
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %s", body)
	}
}

// The deadline must not cut off a body that is still streaming after Do
// returns; cancellation is deferred until the caller closes the body.
func TestDo_BodyReadableAfterReturn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"temperature":`))
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`21.5}`))
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := f.Do(context.Background(), req, testPolicy())
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("body read after Do returned failed: %v (got %q)", err, body)
	}
	if string(body) != `{"temperature":21.5}` {
		t.Errorf("body = %s", body)
	}
}

// A body that stalls past the deadline is still cut off.
func TestDo_BodyReadHonorsDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"partial":`))
		w.(http.Flusher).Flush()
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`true}`))
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	policy := testPolicy()
	policy.Timeout = 100 * time.Millisecond

	resp, err := f.Do(context.Background(), req, policy)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if _, err := io.ReadAll(resp.Body); err == nil {
		t.Error("expected read error once the deadline passed mid-body")
	}
}

func TestDo_TimeoutIsDistinguished(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	policy := testPolicy()
	policy.Timeout = 50 * time.Millisecond

	_, err := f.Do(context.Background(), req, policy)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, ErrNetwork) {
		t.Error("timeout must not classify as ErrNetwork")
	}
}

func TestDo_NetworkErrorClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused from here on

	f := New()
	req, _ := http.NewRequest("GET", url, nil)

	_, err := f.Do(context.Background(), req, testPolicy())
	if err == nil {
		t.Fatal("expected network error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

// Plain Do must not retry, even on 5xx.
func TestDo_NoRetryOnServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := f.Do(context.Background(), req, testPolicy())
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly 1 request, got %d", hits.Load())
	}
}

func TestDoWithRetry_SucceedsAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := f.DoWithRetry(context.Background(), req, testPolicy())
	if err != nil {
		t.Fatalf("DoWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestDoWithRetry_ExhaustedReRaisesLastError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	_, err := f.DoWithRetry(context.Background(), req, testPolicy())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected wrapped UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Errorf("last error status = %d, want 502", upstream.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestDoWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())

	policy := testPolicy()
	policy.BaseDelay = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		_, err := f.DoWithRetry(ctx, req, policy)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrContextCancelled) {
			t.Errorf("expected ErrContextCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DoWithRetry did not return after cancellation")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Timeout != 8*time.Second {
		t.Errorf("Timeout = %v, want 8s", p.Timeout)
	}
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", p.BaseDelay)
	}
}
