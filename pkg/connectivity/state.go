// Package connectivity tracks the observed health of the network link based
// on fetch outcomes. The state is shared across all worker instances via
// Redis; the sync coordinator uses offline-to-online transitions as its
// "connectivity restored" signal.
package connectivity

import (
	"time"
)

// Redis keys for connectivity state storage.
const (
	RedisKeyConsecutiveFailures = "connectivity:consecutive_failures"
	RedisKeyLastSuccess         = "connectivity:last_success"
	RedisKeyLastUpdate          = "connectivity:last_update"
)

// FailureThresholdOffline marks the link offline once this many consecutive
// fetch failures have been observed.
const FailureThresholdOffline = 3

// State represents the current observed connectivity.
type State struct {
	// Online indicates whether the link is considered up.
	Online bool `json:"online"`

	// ConsecutiveFailures is the number of fetch failures since the last
	// success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastSuccess is the timestamp of the last successful fetch.
	LastSuccess time.Time `json:"last_success"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// UpdateHealth derives the Online flag from the failure count.
func (s *State) UpdateHealth() {
	s.Online = s.ConsecutiveFailures < FailureThresholdOffline
}
