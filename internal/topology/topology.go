// Package topology holds the configured registry of shards. A Topology is
// immutable once constructed and is shared by reference with every other
// component.
package topology

import (
	"errors"
	"fmt"
)

// ErrShardNotFound is returned when a shard id is not present in the topology.
var ErrShardNotFound = errors.New("shard not found")

// ReplicaStrategy names how a read replica is picked for a shard.
type ReplicaStrategy string

const (
	ReplicaDefault    ReplicaStrategy = ""
	ReplicaRoundRobin ReplicaStrategy = "round_robin"
	ReplicaRandom     ReplicaStrategy = "random"
)

// ShardInfo describes one physical shard: its primary endpoint plus any
// read replicas.
type ShardInfo struct {
	ShardID                  string
	ConnectionString         string
	ReplicaConnectionStrings []string
	ReplicaStrategy          ReplicaStrategy
}

// Topology is an ordered, keyed collection of shards plus the subset that is
// eligible for scatter-gather operations.
type Topology struct {
	byID   map[string]ShardInfo
	order  []string
	active []string
}

// New builds a topology from the configured shards. activeIDs restricts which
// shards participate in scatter-gather; a nil or empty list means all shards
// are active.
func New(shards []ShardInfo, activeIDs []string) (*Topology, error) {
	if len(shards) == 0 {
		return nil, errors.New("topology requires at least one shard")
	}
	t := &Topology{
		byID:  make(map[string]ShardInfo, len(shards)),
		order: make([]string, 0, len(shards)),
	}
	for _, s := range shards {
		if s.ShardID == "" {
			return nil, errors.New("shard id must not be empty")
		}
		if s.ConnectionString == "" {
			return nil, fmt.Errorf("shard %s: connection string must not be empty", s.ShardID)
		}
		if _, dup := t.byID[s.ShardID]; dup {
			return nil, fmt.Errorf("duplicate shard id %s", s.ShardID)
		}
		// Copy the replica list so later mutation of the caller's slice
		// cannot leak into the topology.
		s.ReplicaConnectionStrings = append([]string(nil), s.ReplicaConnectionStrings...)
		t.byID[s.ShardID] = s
		t.order = append(t.order, s.ShardID)
	}

	if len(activeIDs) == 0 {
		t.active = append([]string(nil), t.order...)
		return t, nil
	}
	seen := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		if _, ok := t.byID[id]; !ok {
			return nil, fmt.Errorf("active shard %s: %w", id, ErrShardNotFound)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate active shard id %s", id)
		}
		seen[id] = struct{}{}
	}
	// Keep declaration order regardless of how the active list was written.
	for _, id := range t.order {
		if _, ok := seen[id]; ok {
			t.active = append(t.active, id)
		}
	}
	return t, nil
}

// Shard returns the shard with the given id.
func (t *Topology) Shard(id string) (ShardInfo, error) {
	s, ok := t.byID[id]
	if !ok {
		return ShardInfo{}, fmt.Errorf("shard %s: %w", id, ErrShardNotFound)
	}
	return s, nil
}

// Has reports whether the shard id exists in the topology, active or not.
func (t *Topology) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// Shards returns every configured shard in declaration order.
func (t *Topology) Shards() []ShardInfo {
	out := make([]ShardInfo, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// ActiveShards returns the shards eligible for scatter-gather, in declaration
// order.
func (t *Topology) ActiveShards() []ShardInfo {
	out := make([]ShardInfo, 0, len(t.active))
	for _, id := range t.active {
		out = append(out, t.byID[id])
	}
	return out
}

// ActiveShardIDs returns the ids of the active shards in declaration order.
func (t *Topology) ActiveShardIDs() []string {
	return append([]string(nil), t.active...)
}
