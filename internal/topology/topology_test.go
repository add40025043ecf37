package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	_, err = New([]ShardInfo{{ShardID: "", ConnectionString: "dsn"}}, nil)
	require.Error(t, err)

	_, err = New([]ShardInfo{{ShardID: "s0", ConnectionString: ""}}, nil)
	require.Error(t, err)

	_, err = New([]ShardInfo{
		{ShardID: "s0", ConnectionString: "a"},
		{ShardID: "s0", ConnectionString: "b"},
	}, nil)
	require.Error(t, err)

	_, err = New([]ShardInfo{{ShardID: "s0", ConnectionString: "a"}}, []string{"missing"})
	require.ErrorIs(t, err, ErrShardNotFound)
}

func TestShardLookup(t *testing.T) {
	topo, err := New([]ShardInfo{
		{ShardID: "s0", ConnectionString: "dsn0"},
		{ShardID: "s1", ConnectionString: "dsn1", ReplicaConnectionStrings: []string{"r1"}},
	}, nil)
	require.NoError(t, err)

	s, err := topo.Shard("s1")
	require.NoError(t, err)
	require.Equal(t, "dsn1", s.ConnectionString)
	require.Equal(t, []string{"r1"}, s.ReplicaConnectionStrings)

	_, err = topo.Shard("s9")
	require.True(t, errors.Is(err, ErrShardNotFound))
	require.False(t, topo.Has("s9"))
	require.True(t, topo.Has("s0"))
}

func TestActiveSubsetKeepsDeclarationOrder(t *testing.T) {
	topo, err := New([]ShardInfo{
		{ShardID: "s0", ConnectionString: "dsn0"},
		{ShardID: "s1", ConnectionString: "dsn1"},
		{ShardID: "s2", ConnectionString: "dsn2"},
	}, []string{"s2", "s0"})
	require.NoError(t, err)

	require.Equal(t, []string{"s0", "s2"}, topo.ActiveShardIDs())
	require.Len(t, topo.Shards(), 3)

	active := topo.ActiveShards()
	require.Len(t, active, 2)
	require.Equal(t, "s0", active[0].ShardID)
	require.Equal(t, "s2", active[1].ShardID)
}

func TestAllActiveByDefault(t *testing.T) {
	topo, err := New([]ShardInfo{
		{ShardID: "s0", ConnectionString: "dsn0"},
		{ShardID: "s1", ConnectionString: "dsn1"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"s0", "s1"}, topo.ActiveShardIDs())
}

func TestReplicaListIsCopied(t *testing.T) {
	replicas := []string{"r1", "r2"}
	topo, err := New([]ShardInfo{
		{ShardID: "s0", ConnectionString: "dsn0", ReplicaConnectionStrings: replicas},
	}, nil)
	require.NoError(t, err)

	replicas[0] = "mutated"
	s, err := topo.Shard("s0")
	require.NoError(t, err)
	require.Equal(t, "r1", s.ReplicaConnectionStrings[0])
}
