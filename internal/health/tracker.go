// Package health tracks replica availability per (shard, endpoint) pair.
// Marking is driven by actual connection attempts, not by a background prober:
// a replica marked unhealthy becomes eligible again once its recovery delay
// elapses, and the next failed use re-marks it.
package health

import (
	"sync"
	"time"
)

// Clock supplies the current time; swapped out in tests.
type Clock func() time.Time

type recordKey struct {
	shardID  string
	endpoint string
}

type record struct {
	healthy           bool
	markedUnhealthyAt time.Time
}

// Tracker is the only component in the subsystem holding cross-call mutable
// state. All mutation happens under one mutex with no I/O inside the critical
// section.
type Tracker struct {
	mu            sync.RWMutex
	records       map[recordKey]record
	recoveryDelay time.Duration
	now           Clock
}

// DefaultRecoveryDelay applies when the configured delay is zero or negative.
const DefaultRecoveryDelay = 30 * time.Second

func NewTracker(recoveryDelay time.Duration, now Clock) *Tracker {
	if recoveryDelay <= 0 {
		recoveryDelay = DefaultRecoveryDelay
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{
		records:       make(map[recordKey]record),
		recoveryDelay: recoveryDelay,
		now:           now,
	}
}

// MarkHealthy resets any stale unhealthy state for the endpoint.
func (t *Tracker) MarkHealthy(shardID, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[recordKey{shardID, endpoint}] = record{healthy: true}
}

// MarkUnhealthy excludes the endpoint until the recovery delay elapses.
func (t *Tracker) MarkUnhealthy(shardID, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[recordKey{shardID, endpoint}] = record{healthy: false, markedUnhealthyAt: t.now()}
}

// AvailableReplicas filters the configured endpoints down to those currently
// considered usable: never marked unhealthy, or marked long enough ago that
// the recovery delay has passed. Order of the configured list is preserved.
func (t *Tracker) AvailableReplicas(shardID string, configured []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := t.now()
	out := make([]string, 0, len(configured))
	for _, ep := range configured {
		if t.availableLocked(shardID, ep, now) {
			out = append(out, ep)
		}
	}
	return out
}

// IsAvailable reports whether one endpoint is currently usable.
func (t *Tracker) IsAvailable(shardID, endpoint string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.availableLocked(shardID, endpoint, t.now())
}

func (t *Tracker) availableLocked(shardID, endpoint string, now time.Time) bool {
	rec, ok := t.records[recordKey{shardID, endpoint}]
	if !ok || rec.healthy {
		return true
	}
	return now.Sub(rec.markedUnhealthyAt) >= t.recoveryDelay
}
