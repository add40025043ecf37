package routing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shardhub/internal/topology"
)

func twoShardTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New([]topology.ShardInfo{
		{ShardID: "s0", ConnectionString: "dsn0"},
		{ShardID: "s1", ConnectionString: "dsn1"},
	}, nil)
	require.NoError(t, err)
	return topo
}

func TestHashResolveIsDeterministic(t *testing.T) {
	topo := twoShardTopology(t)
	router := NewRouter(topo, NewHashStrategy(topo.ActiveShardIDs()))

	first, err := router.Resolve("user-42")
	require.NoError(t, err)
	require.Contains(t, []string{"s0", "s1"}, first)

	for i := 0; i < 1000; i++ {
		id, err := router.Resolve("user-42")
		require.NoError(t, err)
		require.Equal(t, first, id)
	}
}

func TestHashSpreadsKeys(t *testing.T) {
	topo := twoShardTopology(t)
	router := NewRouter(topo, NewHashStrategy(topo.ActiveShardIDs()))

	hits := map[string]int{}
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for _, k := range keys {
		id, err := router.Resolve(k)
		require.NoError(t, err)
		hits[id]++
	}
	require.Len(t, hits, 2, "twelve keys over two shards should touch both")
}

func TestResolveEmptyKey(t *testing.T) {
	topo := twoShardTopology(t)
	router := NewRouter(topo, NewHashStrategy(topo.ActiveShardIDs()))

	_, err := router.Resolve("")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestRingStrategyDeterministicAndComplete(t *testing.T) {
	ring := NewRingStrategy([]string{"s0", "s1", "s2"}, 32)

	first, err := ring.Pick("order-7")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		id, err := ring.Pick("order-7")
		require.NoError(t, err)
		require.Equal(t, first, id)
	}

	hits := map[string]int{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "quux", "zork"} {
		id, err := ring.Pick(k)
		require.NoError(t, err)
		hits[id]++
	}
	for id := range hits {
		require.Contains(t, []string{"s0", "s1", "s2"}, id)
	}
}

func TestRangeStrategy(t *testing.T) {
	boundaries := []RangeBoundary{
		{Upper: "h", ShardID: "s0"},
		{Upper: "p", ShardID: "s1"},
	}

	loose := NewRangeStrategy(boundaries, false)

	id, err := loose.Pick("apple")
	require.NoError(t, err)
	require.Equal(t, "s0", id)

	id, err = loose.Pick("kiwi")
	require.NoError(t, err)
	require.Equal(t, "s1", id)

	// Beyond every boundary: falls through to the last shard.
	id, err = loose.Pick("zebra")
	require.NoError(t, err)
	require.Equal(t, "s1", id)

	strict := NewRangeStrategy(boundaries, true)
	_, err = strict.Pick("zebra")
	require.ErrorIs(t, err, ErrNoShardForKey)
}

func TestTimeBucketStrategy(t *testing.T) {
	cut := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	boundaries := []TimeBoundary{
		{Until: cut, ShardID: "archive"},
		{Until: cut.AddDate(1, 0, 0), ShardID: "hot"},
	}

	s := NewTimeBucketStrategy(boundaries, false)

	id, err := s.PickTime(cut.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, "archive", id)

	id, err = s.PickTime(cut.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "hot", id)

	id, err = s.PickTime(cut.AddDate(2, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "hot", id)

	strict := NewTimeBucketStrategy(boundaries, true)
	_, err = strict.PickTime(cut.AddDate(2, 0, 0))
	require.ErrorIs(t, err, ErrNoShardForKey)

	id, err = s.Pick("2023-06-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, "archive", id)

	_, err = s.Pick("not-a-timestamp")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestEntityRouter(t *testing.T) {
	type order struct {
		CustomerID string
	}

	topo := twoShardTopology(t)
	router := NewRouter(topo, NewHashStrategy(topo.ActiveShardIDs()))
	er := NewEntityRouter(router, func(o order) (string, error) {
		if o.CustomerID == "" {
			return "", errors.New("order has no customer id")
		}
		return o.CustomerID, nil
	})

	id, err := er.ResolveEntity(order{CustomerID: "c-9"})
	require.NoError(t, err)
	direct, err := router.Resolve("c-9")
	require.NoError(t, err)
	require.Equal(t, direct, id)

	_, err = er.ResolveEntity(order{})
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestResolveWithStrategyPickingUnknownShard(t *testing.T) {
	topo := twoShardTopology(t)
	router := NewRouter(topo, NewRangeStrategy([]RangeBoundary{{Upper: "z", ShardID: "ghost"}}, false))

	_, err := router.Resolve("a")
	require.ErrorIs(t, err, topology.ErrShardNotFound)
}
