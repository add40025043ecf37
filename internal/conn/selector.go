package conn

import (
	"math/rand"
	"sync"
)

// Selector picks one endpoint from the healthy subset of a shard's replicas.
// The slice passed in is never empty.
type Selector interface {
	Select(shardID string, endpoints []string) string
}

// SelectorFunc adapts a plain function to a Selector for custom strategies.
type SelectorFunc func(shardID string, endpoints []string) string

func (f SelectorFunc) Select(shardID string, endpoints []string) string {
	return f(shardID, endpoints)
}

// RoundRobinSelector cycles through a shard's healthy replicas, keeping an
// independent cursor per shard.
type RoundRobinSelector struct {
	mu   sync.Mutex
	next map[string]int
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{next: make(map[string]int)}
}

func (s *RoundRobinSelector) Select(shardID string, endpoints []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next[shardID]
	s.next[shardID] = i + 1
	return endpoints[i%len(endpoints)]
}

// RandomSelector picks a uniformly random healthy replica.
type RandomSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomSelector(seed int64) *RandomSelector {
	return &RandomSelector{rnd: rand.New(rand.NewSource(seed))}
}

func (s *RandomSelector) Select(_ string, endpoints []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return endpoints[s.rnd.Intn(len(endpoints))]
}
