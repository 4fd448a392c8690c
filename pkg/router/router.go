// Package router classifies outbound requests and dispatches each class to
// its caching strategy: cache-first with stale-while-revalidate for static
// assets, network-first with cache fallback for API requests, cache-first
// silent degradation for images, and a fallback chain for navigations.
package router

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/and3rn3t/weather-sub008/pkg/cachestore"
	"github.com/and3rn3t/weather-sub008/pkg/connectivity"
	"github.com/and3rn3t/weather-sub008/pkg/fetcher"
	"github.com/and3rn3t/weather-sub008/pkg/logging"
)

const offlinePage = `<!DOCTYPE html>
<html>
<head><title>Offline</title></head>
<body>
<h1>You are offline</h1>
<p>Weather data is unavailable until the connection is restored.</p>
</body>
</html>`

// Config holds router configuration.
type Config struct {
	// APIHosts is the fixed allow-list of upstream service hostnames.
	APIHosts []string

	// Policy bounds every outbound fetch issued by the router.
	Policy fetcher.Policy

	// IndexPath is the cached index document used as the last navigation
	// fallback before the synthetic offline page.
	IndexPath string
}

// Router dispatches classified requests to per-class strategies.
type Router struct {
	classifier *Classifier
	fetcher    *fetcher.Fetcher
	static     *cachestore.Handle
	api        *cachestore.Handle
	images     *cachestore.Handle
	tracker    *connectivity.Tracker
	policy     fetcher.Policy
	indexPath  string
	logger     zerolog.Logger

	// OnConnectivityRestored is invoked (in its own goroutine) when an API
	// fetch succeeds after the link was considered offline.
	OnConnectivityRestored func()

	strategies map[Class]func(ctx context.Context, req *http.Request) *http.Response

	// wg tracks background revalidations so tests can wait for them.
	wg sync.WaitGroup
}

// New creates a router over the given cache handles. tracker may be nil when
// connectivity tracking is not wanted.
func New(cfg Config, f *fetcher.Fetcher, static, api, images *cachestore.Handle, tracker *connectivity.Tracker) *Router {
	policy := cfg.Policy
	if policy.Timeout <= 0 {
		policy = fetcher.DefaultPolicy()
	}
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = "/index.html"
	}

	r := &Router{
		classifier: NewClassifier(cfg.APIHosts),
		fetcher:    f,
		static:     static,
		api:        api,
		images:     images,
		tracker:    tracker,
		policy:     policy,
		indexPath:  indexPath,
		logger:     logging.NewLogger("fetch-router"),
	}

	r.strategies = map[Class]func(ctx context.Context, req *http.Request) *http.Response{
		ClassStatic:     r.handleStatic,
		ClassAPI:        r.handleAPI,
		ClassImage:      r.handleImage,
		ClassNavigation: r.handleNavigation,
	}

	return r
}

// Handle classifies the request and applies the matching strategy. It always
// produces a response: total failure yields a synthetic offline response, not
// an error. The cache layer must never be the reason a request fails.
func (r *Router) Handle(ctx context.Context, req *http.Request) *http.Response {
	class := r.classifier.Classify(req)
	start := time.Now()

	resp := r.strategies[class](ctx, req)

	routerRequests.WithLabelValues(string(class), strconv.Itoa(resp.StatusCode)).Inc()
	r.logger.Debug().
		Str("url", req.URL.String()).
		Str("class", string(class)).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request handled")

	return resp
}

// handleStatic serves static assets cache-first. A hit is served immediately
// with a non-blocking background refetch; a miss goes to the network and is
// cached on success.
func (r *Router) handleStatic(ctx context.Context, req *http.Request) *http.Response {
	key := cachestore.KeyFromRequest(req)

	entry, err := r.static.Get(ctx, key)
	if err == nil {
		r.revalidate(req, r.static, key)
		return cachestore.EntryToResponse(entry)
	}
	if err != cachestore.ErrCacheMiss {
		r.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Static cache read failed")
	}

	resp, ferr := r.fetcher.Do(ctx, req, r.policy)
	if ferr != nil {
		routerSynthetic.WithLabelValues(string(ClassStatic)).Inc()
		return syntheticUnavailable("text/plain", []byte("asset unavailable offline"))
	}

	r.cacheOnSuccess(ctx, r.static, key, resp)
	return resp
}

// handleAPI is network-first: data freshness wins, so the network (with
// retry) is always tried before the cache. Every JSON body is annotated with
// a _meta provenance block before it is returned.
func (r *Router) handleAPI(ctx context.Context, req *http.Request) *http.Response {
	key := cachestore.KeyFromRequest(req)

	resp, err := r.fetcher.DoWithRetry(ctx, req, r.policy)
	if err == nil {
		r.recordOutcome(ctx, true)

		entry, cerr := cachestore.ResponseToEntry(resp)
		if cerr != nil {
			r.logger.Warn().Err(cerr).Str("url", req.URL.String()).Msg("Failed to read API response")
			return resp
		}
		resp.Body.Close()

		if perr := r.api.Put(ctx, key, entry); perr != nil {
			r.logger.Warn().Err(perr).Str("url", req.URL.String()).Msg("Failed to cache API response")
		}

		return jsonResponse(entry.StatusCode, annotateJSON(entry.Data, networkMeta()))
	}

	r.recordOutcome(ctx, false)
	routerFallbacks.WithLabelValues(string(ClassAPI)).Inc()
	r.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("API fetch failed, trying cache")

	entry, cerr := r.api.Get(ctx, key)
	if cerr == nil {
		return jsonResponse(http.StatusOK, annotateJSON(entry.Data, cacheMeta(entry.StoredAt)))
	}
	if cerr != cachestore.ErrCacheMiss {
		r.logger.Warn().Err(cerr).Str("url", req.URL.String()).Msg("API cache read failed")
	}

	routerSynthetic.WithLabelValues(string(ClassAPI)).Inc()
	message := "network unavailable and no cached data"
	if fetcher.IsTimeout(err) {
		message = "request timed out and no cached data"
	}
	return jsonResponse(http.StatusServiceUnavailable, offlineBody(message))
}

// handleImage is cache-first like static assets but degrades silently: no
// revalidation, and total failure yields an empty unavailable response rather
// than an error page.
func (r *Router) handleImage(ctx context.Context, req *http.Request) *http.Response {
	key := cachestore.KeyFromRequest(req)

	entry, err := r.images.Get(ctx, key)
	if err == nil {
		return cachestore.EntryToResponse(entry)
	}
	if err != cachestore.ErrCacheMiss {
		r.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Image cache read failed")
	}

	resp, ferr := r.fetcher.Do(ctx, req, r.policy)
	if ferr != nil {
		routerSynthetic.WithLabelValues(string(ClassImage)).Inc()
		return syntheticUnavailable("text/plain", nil)
	}

	r.cacheOnSuccess(ctx, r.images, key, resp)
	return resp
}

// handleNavigation is network-first with a fallback chain: exact URL, root
// path, cached index document, synthetic offline page.
func (r *Router) handleNavigation(ctx context.Context, req *http.Request) *http.Response {
	key := cachestore.KeyFromRequest(req)

	resp, err := r.fetcher.Do(ctx, req, r.policy)
	if err == nil {
		r.cacheOnSuccess(ctx, r.static, key, resp)
		return resp
	}

	routerFallbacks.WithLabelValues(string(ClassNavigation)).Inc()

	fallbacks := []cachestore.RequestKey{
		key,
		navigationKey(req, "/"),
		navigationKey(req, r.indexPath),
	}
	for _, fk := range fallbacks {
		entry, cerr := r.static.Get(ctx, fk)
		if cerr == nil {
			return cachestore.EntryToResponse(entry)
		}
	}

	routerSynthetic.WithLabelValues(string(ClassNavigation)).Inc()
	return syntheticUnavailable("text/html", []byte(offlinePage))
}

// revalidate refetches a cached asset in the background and refreshes the
// cache entry (stale-while-revalidate). Failures are logged and otherwise
// ignored; the caller has already been served from cache.
func (r *Router) revalidate(req *http.Request, handle *cachestore.Handle, key cachestore.RequestKey) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.policy.Timeout)
		defer cancel()

		resp, err := r.fetcher.Do(ctx, req.Clone(ctx), r.policy)
		if err != nil {
			r.logger.Debug().Err(err).Str("url", req.URL.String()).Msg("Background revalidation failed")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			entry, err := cachestore.ResponseToEntry(resp)
			if err != nil {
				return
			}
			if err := handle.Put(ctx, key, entry); err != nil {
				r.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Revalidation cache write failed")
			}
		}
	}()
}

// cacheOnSuccess stores a 200 response without consuming it for the caller.
func (r *Router) cacheOnSuccess(ctx context.Context, handle *cachestore.Handle, key cachestore.RequestKey, resp *http.Response) {
	if resp.StatusCode != http.StatusOK {
		return
	}
	entry, err := cachestore.ResponseToEntry(resp)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to build cache entry")
		return
	}
	if err := handle.Put(ctx, key, entry); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to cache response")
	}
}

// recordOutcome feeds fetch results into the connectivity tracker and fires
// the restoration hook when the link comes back.
func (r *Router) recordOutcome(ctx context.Context, success bool) {
	if r.tracker == nil {
		return
	}

	if success {
		restored, err := r.tracker.RecordSuccess(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to record fetch success")
			return
		}
		if restored && r.OnConnectivityRestored != nil {
			go r.OnConnectivityRestored()
		}
		return
	}

	if _, err := r.tracker.RecordFailure(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record fetch failure")
	}
}

func navigationKey(req *http.Request, path string) cachestore.RequestKey {
	origin := ""
	if req.URL.Scheme != "" || req.URL.Host != "" {
		origin = req.URL.Scheme + "://" + req.URL.Host
	}
	return cachestore.RequestKey{Method: http.MethodGet, Origin: origin, Path: path}
}

func jsonResponse(status int, body []byte) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode:    status,
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func syntheticUnavailable(contentType string, body []byte) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return &http.Response{
		StatusCode:    http.StatusServiceUnavailable,
		Status:        "503 " + http.StatusText(http.StatusServiceUnavailable),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
