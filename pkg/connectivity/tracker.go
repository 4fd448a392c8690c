package connectivity

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for connectivity tracking.
var (
	connectivityOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_connectivity_online",
		Help: "Whether the network link is currently considered online (1) or offline (0)",
	})

	connectivityTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_connectivity_transitions_total",
		Help: "Total connectivity state transitions by direction",
	}, []string{"direction"}) // "online", "offline"
)

// Tracker records fetch outcomes and derives connectivity state.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new connectivity tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current connectivity state from Redis.
// Returns a default online state if no data exists.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	failures, err := t.redis.Get(ctx, RedisKeyConsecutiveFailures).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get consecutive failures: %w", err)
	}

	if err == redis.Nil {
		t.logger.Debug().Msg("No connectivity state in Redis, assuming online")
		return &State{
			Online:     true,
			LastUpdate: time.Now(),
		}, nil
	}

	lastSuccess, err := t.redis.Get(ctx, RedisKeyLastSuccess).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last success: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &State{
		ConsecutiveFailures: failures,
		LastSuccess:         time.Unix(lastSuccess, 0),
		LastUpdate:          time.Unix(lastUpdate, 0),
	}
	state.UpdateHealth()

	return state, nil
}

// RecordSuccess resets the failure count and reports whether this success
// restored a previously offline link. A restored link is the trigger for the
// sync coordinator's background-sync broadcast.
func (t *Tracker) RecordSuccess(ctx context.Context) (restored bool, err error) {
	prev, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}

	now := time.Now()
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyConsecutiveFailures, 0, 0)
	pipe.Set(ctx, RedisKeyLastSuccess, now.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, now.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record success: %w", err)
	}

	connectivityOnline.Set(1)

	if !prev.Online {
		connectivityTransitions.WithLabelValues("online").Inc()
		t.logger.Info().
			Int("failures_before", prev.ConsecutiveFailures).
			Msg("Connectivity restored")
		return true, nil
	}

	return false, nil
}

// RecordFailure increments the failure count and returns the updated state.
func (t *Tracker) RecordFailure(ctx context.Context) (*State, error) {
	prev, err := t.GetState(ctx)
	if err != nil {
		return nil, err
	}

	failures, err := t.redis.Incr(ctx, RedisKeyConsecutiveFailures).Result()
	if err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}

	if err := t.redis.Set(ctx, RedisKeyLastUpdate, time.Now().Unix(), 0).Err(); err != nil {
		return nil, fmt.Errorf("record failure timestamp: %w", err)
	}

	state := &State{
		ConsecutiveFailures: int(failures),
		LastSuccess:         prev.LastSuccess,
		LastUpdate:          time.Now(),
	}
	state.UpdateHealth()

	if !state.Online {
		connectivityOnline.Set(0)
		if prev.Online {
			connectivityTransitions.WithLabelValues("offline").Inc()
			t.logger.Warn().
				Int("consecutive_failures", state.ConsecutiveFailures).
				Msg("Connectivity lost")
		}
	}

	return state, nil
}

// Reset clears all connectivity state (for tests).
func (t *Tracker) Reset(ctx context.Context) error {
	return t.redis.Del(ctx, RedisKeyConsecutiveFailures, RedisKeyLastSuccess, RedisKeyLastUpdate).Err()
}
