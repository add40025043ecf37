// Package routing maps logical keys (or entities carrying a key) to shard ids.
// Strategies are pure over an immutable topology, so a router is safe for any
// number of concurrent callers.
package routing

import (
	"errors"
	"fmt"

	"shardhub/internal/topology"
)

var (
	// ErrInvalidKey marks a routing key that is empty or could not be
	// extracted from an entity.
	ErrInvalidKey = errors.New("invalid routing key")
	// ErrNoShardForKey marks a key outside every configured boundary while
	// strict matching is enabled.
	ErrNoShardForKey = errors.New("no shard for key")
)

// Strategy picks a shard id for a key from the active shard set it was built
// with.
type Strategy interface {
	Pick(key string) (string, error)
}

// Router resolves routing keys against a topology using a pluggable strategy.
type Router struct {
	topo     *topology.Topology
	strategy Strategy
}

func NewRouter(topo *topology.Topology, strategy Strategy) *Router {
	return &Router{topo: topo, strategy: strategy}
}

// Resolve maps a key to the id of the shard that owns it. The returned id is
// guaranteed to exist in the topology.
func (r *Router) Resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if len(r.topo.ActiveShardIDs()) == 0 {
		return "", fmt.Errorf("no active shards: %w", topology.ErrShardNotFound)
	}
	id, err := r.strategy.Pick(key)
	if err != nil {
		return "", err
	}
	if !r.topo.Has(id) {
		return "", fmt.Errorf("strategy picked shard %s: %w", id, topology.ErrShardNotFound)
	}
	return id, nil
}

// KeyExtractor pulls the routing key off an entity. Callers supply one per
// entity type when they register a repository; nothing here inspects entities
// dynamically.
type KeyExtractor[T any] func(entity T) (string, error)

// EntityRouter binds a Router to a key extractor for one entity type.
type EntityRouter[T any] struct {
	router  *Router
	extract KeyExtractor[T]
}

func NewEntityRouter[T any](r *Router, extract KeyExtractor[T]) *EntityRouter[T] {
	return &EntityRouter[T]{router: r, extract: extract}
}

// ResolveEntity extracts the routing key from the entity and resolves it.
func (er *EntityRouter[T]) ResolveEntity(entity T) (string, error) {
	key, err := er.extract(entity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return er.router.Resolve(key)
}
