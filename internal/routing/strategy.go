package routing

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"shardhub/internal/topology"
)

// HashStrategy distributes keys over the active shards with an FNV-1a hash.
// The mapping is stable across process restarts for an unchanged topology.
type HashStrategy struct {
	shards []string
}

func NewHashStrategy(activeShardIDs []string) *HashStrategy {
	return &HashStrategy{shards: append([]string(nil), activeShardIDs...)}
}

func (h *HashStrategy) Pick(key string) (string, error) {
	if len(h.shards) == 0 {
		return "", fmt.Errorf("no active shards: %w", topology.ErrShardNotFound)
	}
	return h.shards[hashKey(key)%uint64(len(h.shards))], nil
}

// RingStrategy is a consistent-hash variant of HashStrategy: each shard owns
// a number of virtual points on a ring and a key maps to the first point at or
// after its hash. Adding or removing one shard only remaps keys adjacent to
// its points.
type RingStrategy struct {
	points []ringPoint
}

type ringPoint struct {
	hash    uint64
	shardID string
}

const defaultVirtualNodes = 64

func NewRingStrategy(activeShardIDs []string, virtualNodes int) *RingStrategy {
	if virtualNodes <= 0 {
		virtualNodes = defaultVirtualNodes
	}
	r := &RingStrategy{points: make([]ringPoint, 0, len(activeShardIDs)*virtualNodes)}
	for _, id := range activeShardIDs {
		for v := 0; v < virtualNodes; v++ {
			r.points = append(r.points, ringPoint{
				hash:    hashKey(fmt.Sprintf("%s#%d", id, v)),
				shardID: id,
			})
		}
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i].hash < r.points[j].hash })
	return r
}

func (r *RingStrategy) Pick(key string) (string, error) {
	if len(r.points) == 0 {
		return "", fmt.Errorf("no active shards: %w", topology.ErrShardNotFound)
	}
	h := hashKey(key)
	i := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= h })
	if i == len(r.points) {
		i = 0
	}
	return r.points[i].shardID, nil
}

// RangeBoundary assigns every key strictly below Upper (and at or above the
// previous boundary's Upper) to ShardID. Boundaries must be sorted ascending
// by Upper.
type RangeBoundary struct {
	Upper   string
	ShardID string
}

// RangeStrategy routes keys by lexicographic comparison against ordered
// boundaries. A key beyond the last boundary falls through to the last shard
// unless strict mode is on.
type RangeStrategy struct {
	boundaries []RangeBoundary
	strict     bool
}

func NewRangeStrategy(boundaries []RangeBoundary, strict bool) *RangeStrategy {
	bs := append([]RangeBoundary(nil), boundaries...)
	sort.Slice(bs, func(i, j int) bool { return bs[i].Upper < bs[j].Upper })
	return &RangeStrategy{boundaries: bs, strict: strict}
}

func (r *RangeStrategy) Pick(key string) (string, error) {
	if len(r.boundaries) == 0 {
		return "", fmt.Errorf("no range boundaries: %w", topology.ErrShardNotFound)
	}
	for _, b := range r.boundaries {
		if key < b.Upper {
			return b.ShardID, nil
		}
	}
	if r.strict {
		return "", fmt.Errorf("key %q exceeds all range boundaries: %w", key, ErrNoShardForKey)
	}
	return r.boundaries[len(r.boundaries)-1].ShardID, nil
}

// TimeBoundary assigns timestamps before Until to ShardID.
type TimeBoundary struct {
	Until   time.Time
	ShardID string
}

// TimeBucketStrategy routes by timestamp against ordered time boundaries.
// String keys are parsed as RFC 3339; callers with a real timestamp should use
// PickTime.
type TimeBucketStrategy struct {
	boundaries []TimeBoundary
	strict     bool
}

func NewTimeBucketStrategy(boundaries []TimeBoundary, strict bool) *TimeBucketStrategy {
	bs := append([]TimeBoundary(nil), boundaries...)
	sort.Slice(bs, func(i, j int) bool { return bs[i].Until.Before(bs[j].Until) })
	return &TimeBucketStrategy{boundaries: bs, strict: strict}
}

func (t *TimeBucketStrategy) Pick(key string) (string, error) {
	ts, err := time.Parse(time.RFC3339, key)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not an RFC 3339 timestamp", ErrInvalidKey, key)
	}
	return t.PickTime(ts)
}

func (t *TimeBucketStrategy) PickTime(ts time.Time) (string, error) {
	if len(t.boundaries) == 0 {
		return "", fmt.Errorf("no time boundaries: %w", topology.ErrShardNotFound)
	}
	for _, b := range t.boundaries {
		if ts.Before(b.Until) {
			return b.ShardID, nil
		}
	}
	if t.strict {
		return "", fmt.Errorf("timestamp %s exceeds all time boundaries: %w", ts.UTC().Format(time.RFC3339), ErrNoShardForKey)
	}
	return t.boundaries[len(t.boundaries)-1].ShardID, nil
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}
