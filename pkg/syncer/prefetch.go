package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/and3rn3t/weather-sub008/pkg/searchcache"
)

// geocodeResponse is the subset of the geocoding reply the preload stores.
type geocodeResponse struct {
	Results []searchcache.ResultItem `json:"results"`
}

type prefetchResult struct {
	city  string
	count int
	err   error
}

// PreloadPopularCities fetches geocoding results for a bounded city list in
// parallel and stores successes tagged source=prefetch. All fetches are
// best-effort: one failing city must not prevent the others from being
// cached, and failures are logged rather than returned.
func (c *Coordinator) PreloadPopularCities(ctx context.Context, cities []string) (stored, failed int) {
	if len(cities) == 0 {
		return 0, 0
	}

	start := time.Now()
	queue := make(chan string, len(cities))
	results := make(chan prefetchResult, len(cities))

	for _, city := range cities {
		queue <- city
	}
	close(queue)

	var wg sync.WaitGroup
	workers := c.cfg.PrefetchConcurrency
	if workers > len(cities) {
		workers = len(cities)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for city := range queue {
				results <- c.prefetchCity(ctx, city)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			failed++
			preloadCities.WithLabelValues("failure").Inc()
			c.logger.Warn().Err(res.err).Str("query", res.city).Msg("City preload failed")
			continue
		}
		stored++
		preloadCities.WithLabelValues("success").Inc()
		c.logger.Debug().Str("query", res.city).Int("results", res.count).Msg("City preloaded")
	}

	c.logger.Info().
		Int("stored", stored).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Popular-city preload complete")

	return stored, failed
}

// prefetchCity fetches and stores the geocoding results for one city.
func (c *Coordinator) prefetchCity(ctx context.Context, city string) prefetchResult {
	u, err := url.Parse(c.cfg.GeocodeURL)
	if err != nil {
		return prefetchResult{city: city, err: err}
	}
	q := u.Query()
	q.Set("name", city)
	q.Set("count", "5")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return prefetchResult{city: city, err: err}
	}

	start := time.Now()
	resp, err := c.fetcher.Do(ctx, req, c.cfg.Policy)
	if err != nil {
		return prefetchResult{city: city, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return prefetchResult{city: city, err: &url.Error{Op: "preload", URL: u.String(), Err: errStatus(resp.StatusCode)}}
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return prefetchResult{city: city, err: err}
	}

	meta := searchcache.Meta{ResponseTimeMs: time.Since(start).Milliseconds()}
	if err := c.search.CacheSearchResults(ctx, city, decoded.Results, searchcache.SourcePrefetch, meta); err != nil {
		return prefetchResult{city: city, err: err}
	}

	return prefetchResult{city: city, count: len(decoded.Results)}
}

type errStatus int

// Error spells out the numeric code too; http.StatusText is empty for
// non-standard codes.
func (e errStatus) Error() string {
	text := http.StatusText(int(e))
	if text == "" {
		return fmt.Sprintf("unexpected status %d", int(e))
	}
	return fmt.Sprintf("unexpected status %d %s", int(e), text)
}
