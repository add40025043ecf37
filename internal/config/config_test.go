package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shardhub/internal/topology"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "shard_migrations", cfg.HistoryTable)
	require.False(t, cfg.FallbackToPrimary)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHARDHUB_HTTP_ADDR", ":9999")
	t.Setenv("SHARDHUB_FALLBACK_TO_PRIMARY", "TRUE")
	t.Setenv("SHARDHUB_REPLICA_RECOVERY_DELAY", "45s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.True(t, cfg.FallbackToPrimary)
	require.Equal(t, 45*time.Second, cfg.RecoveryDelay)
}

func TestLoadRejectsBadRecoveryDelay(t *testing.T) {
	t.Setenv("SHARDHUB_REPLICA_RECOVERY_DELAY", "soon")
	_, err := Load()
	require.Error(t, err)
}

const sampleTopology = `
provider: postgres
schema: public
shards:
  - id: s0
    dsn: postgres://user:pw@host0:5432/app
    replicas:
      - postgres://user:pw@host0-r1:5432/app
      - postgres://user:pw@host0-r2:5432/app
    replica_strategy: round_robin
  - id: s1
    dsn: postgres://user:pw@host1:5432/app
  - id: s2
    dsn: postgres://user:pw@host2:5432/app
active: [s0, s1]
router:
  strategy: hash
`

func TestParseTopology(t *testing.T) {
	tf, err := ParseTopology([]byte(sampleTopology))
	require.NoError(t, err)
	require.Equal(t, "postgres", tf.Provider)

	topo, err := tf.BuildTopology()
	require.NoError(t, err)
	require.Equal(t, []string{"s0", "s1"}, topo.ActiveShardIDs())

	s0, err := topo.Shard("s0")
	require.NoError(t, err)
	require.Len(t, s0.ReplicaConnectionStrings, 2)
	require.Equal(t, topology.ReplicaRoundRobin, s0.ReplicaStrategy)

	strategy, err := tf.BuildStrategy(topo)
	require.NoError(t, err)
	id, err := strategy.Pick("user-42")
	require.NoError(t, err)
	require.Contains(t, []string{"s0", "s1"}, id)
}

func TestParseTopologyValidation(t *testing.T) {
	_, err := ParseTopology([]byte(`shards: []`))
	require.Error(t, err)

	_, err = ParseTopology([]byte(`provider: postgres`))
	require.Error(t, err)

	tf, err := ParseTopology([]byte(`
provider: postgres
shards:
  - id: s0
    dsn: dsn0
    replica_strategy: fastest
`))
	require.NoError(t, err)
	_, err = tf.BuildTopology()
	require.Error(t, err)
}

func TestBuildRangeStrategy(t *testing.T) {
	tf, err := ParseTopology([]byte(`
provider: mysql
shards:
  - id: s0
    dsn: dsn0
  - id: s1
    dsn: dsn1
router:
  strategy: range
  strict: true
  boundaries:
    - shard: s0
      upper: "m"
    - shard: s1
      upper: "zzzz"
`))
	require.NoError(t, err)

	topo, err := tf.BuildTopology()
	require.NoError(t, err)

	strategy, err := tf.BuildStrategy(topo)
	require.NoError(t, err)

	id, err := strategy.Pick("alpha")
	require.NoError(t, err)
	require.Equal(t, "s0", id)
}

func TestBuildStrategyRejectsUnknownShard(t *testing.T) {
	tf, err := ParseTopology([]byte(`
provider: mysql
shards:
  - id: s0
    dsn: dsn0
router:
  strategy: range
  boundaries:
    - shard: ghost
      upper: "m"
`))
	require.NoError(t, err)

	topo, err := tf.BuildTopology()
	require.NoError(t, err)

	_, err = tf.BuildStrategy(topo)
	require.ErrorIs(t, err, topology.ErrShardNotFound)
}

func TestBuildTimeBucketStrategy(t *testing.T) {
	tf, err := ParseTopology([]byte(`
provider: sqlite
shards:
  - id: cold
    dsn: file:cold.db
  - id: hot
    dsn: file:hot.db
router:
  strategy: time_bucket
  boundaries:
    - shard: cold
      until: 2024-01-01T00:00:00Z
    - shard: hot
      until: 2026-01-01T00:00:00Z
`))
	require.NoError(t, err)

	topo, err := tf.BuildTopology()
	require.NoError(t, err)

	strategy, err := tf.BuildStrategy(topo)
	require.NoError(t, err)

	id, err := strategy.Pick("2023-05-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, "cold", id)
}
