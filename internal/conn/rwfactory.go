package conn

import (
	"context"
	"errors"
	"fmt"

	"shardhub/internal/health"
	"shardhub/internal/routing"
	"shardhub/internal/topology"
)

var (
	// ErrNoReplicasConfigured is returned on the read path when a shard has no
	// replicas and fallback to primary is disabled.
	ErrNoReplicasConfigured = errors.New("no replicas configured")
	// ErrAllReplicasUnhealthy is returned on the read path when every
	// configured replica is currently marked unhealthy and fallback to primary
	// is disabled.
	ErrAllReplicasUnhealthy = errors.New("all replicas unhealthy")
)

// RWFactory wraps Factory with replica-aware read routing. Writes always hit
// the shard primary; reads go to a healthy replica picked by the shard's
// selector, with configurable fallback to the primary.
type RWFactory struct {
	topo    *topology.Topology
	opener  Opener
	tracker *health.Tracker
	logger  Logger

	// FallbackToPrimary covers both read-path degradations: no replicas
	// configured, and all replicas unhealthy.
	fallbackToPrimary bool
	defaultSelector   Selector
	roundRobin        *RoundRobinSelector
	random            *RandomSelector
}

// RWOptions tunes the read path of an RWFactory.
type RWOptions struct {
	FallbackToPrimary bool
	// DefaultSelector applies to shards without an explicit ReplicaStrategy.
	// Nil means round-robin.
	DefaultSelector Selector
	RandomSeed      int64
}

func NewRWFactory(topo *topology.Topology, opener Opener, tracker *health.Tracker, opts RWOptions, logger Logger) *RWFactory {
	if logger == nil {
		logger = nopLogger{}
	}
	f := &RWFactory{
		topo:              topo,
		opener:            opener,
		tracker:           tracker,
		logger:            logger,
		fallbackToPrimary: opts.FallbackToPrimary,
		roundRobin:        NewRoundRobinSelector(),
		random:            NewRandomSelector(opts.RandomSeed),
	}
	f.defaultSelector = opts.DefaultSelector
	if f.defaultSelector == nil {
		f.defaultSelector = f.roundRobin
	}
	return f
}

// WriteConnection opens a connection to the shard's primary.
func (f *RWFactory) WriteConnection(ctx context.Context, shardID string) (*Conn, error) {
	info, err := f.topo.Shard(shardID)
	if err != nil {
		return nil, err
	}
	return open(ctx, f.opener, shardID, info.ConnectionString, false)
}

// ReadConnection opens a connection to a healthy replica of the shard, or to
// the primary when the fallback policy allows it. A successful replica open
// marks the endpoint healthy; a failed one marks it unhealthy so subsequent
// reads skip it until its recovery delay elapses.
func (f *RWFactory) ReadConnection(ctx context.Context, shardID string) (*Conn, error) {
	info, err := f.topo.Shard(shardID)
	if err != nil {
		return nil, err
	}

	if len(info.ReplicaConnectionStrings) == 0 {
		if f.fallbackToPrimary {
			return open(ctx, f.opener, shardID, info.ConnectionString, false)
		}
		return nil, fmt.Errorf("shard %s: %w", shardID, ErrNoReplicasConfigured)
	}

	healthy := f.tracker.AvailableReplicas(shardID, info.ReplicaConnectionStrings)
	if len(healthy) == 0 {
		if f.fallbackToPrimary {
			f.logger.Info("all replicas unhealthy, falling back to primary", "shard", shardID)
			return open(ctx, f.opener, shardID, info.ConnectionString, false)
		}
		return nil, fmt.Errorf("shard %s: %w", shardID, ErrAllReplicasUnhealthy)
	}

	endpoint := f.selectorFor(info).Select(shardID, healthy)
	c, err := open(ctx, f.opener, shardID, endpoint, true)
	if err != nil {
		if ctx.Err() == nil {
			f.tracker.MarkUnhealthy(shardID, endpoint)
			f.logger.Error("replica open failed, marked unhealthy", "shard", shardID, "endpoint", endpoint, "error", err)
		}
		return nil, err
	}
	f.tracker.MarkHealthy(shardID, endpoint)
	return c, nil
}

// Connection dispatches to the read or write path based on the operation's
// ambient intent. Unmarked operations take the write path.
func (f *RWFactory) Connection(ctx context.Context, shardID string) (*Conn, error) {
	if IntentFromContext(ctx) == IntentRead {
		return f.ReadConnection(ctx, shardID)
	}
	return f.WriteConnection(ctx, shardID)
}

// AllWriteConnections opens a primary connection per active shard with
// scatter-gather cleanup semantics.
func (f *RWFactory) AllWriteConnections(ctx context.Context) (map[string]*Conn, error) {
	return fanOut(ctx, f.topo.ActiveShards(), func(ctx context.Context, info topology.ShardInfo) (*Conn, error) {
		return open(ctx, f.opener, info.ShardID, info.ConnectionString, false)
	})
}

// AllReadConnections opens a read connection per active shard with
// scatter-gather cleanup semantics, routing each shard through the replica
// selection policy.
func (f *RWFactory) AllReadConnections(ctx context.Context) (map[string]*Conn, error) {
	return fanOut(ctx, f.topo.ActiveShards(), func(ctx context.Context, info topology.ShardInfo) (*Conn, error) {
		return f.ReadConnection(ctx, info.ShardID)
	})
}

func (f *RWFactory) selectorFor(info topology.ShardInfo) Selector {
	switch info.ReplicaStrategy {
	case topology.ReplicaRoundRobin:
		return f.roundRobin
	case topology.ReplicaRandom:
		return f.random
	default:
		return f.defaultSelector
	}
}

// RoutedConnection resolves the entity to a shard and opens a connection
// honoring the ambient intent.
func RoutedConnection[T any](ctx context.Context, f *RWFactory, er *routing.EntityRouter[T], entity T) (*Conn, error) {
	shardID, err := er.ResolveEntity(entity)
	if err != nil {
		return nil, err
	}
	return f.Connection(ctx, shardID)
}
