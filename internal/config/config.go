// Package config loads subsystem settings from the environment and the shard
// topology from a YAML file. Topology is rebuilt from configuration on every
// restart; nothing here is persisted.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shardhub/internal/routing"
	"shardhub/internal/topology"
)

type Config struct {
	HTTPAddress  string
	LogLevel     string
	TopologyPath string
	HistoryTable string
	// FallbackToPrimary covers both read-path degradations: zero configured
	// replicas and all replicas unhealthy.
	FallbackToPrimary bool
	RecoveryDelay     time.Duration
}

func Load() (Config, error) {
	loadDotEnv()

	cfg := Config{
		HTTPAddress:       getEnv("SHARDHUB_HTTP_ADDR", ":8080"),
		LogLevel:          getEnv("SHARDHUB_LOG_LEVEL", "info"),
		TopologyPath:      getEnv("SHARDHUB_TOPOLOGY_PATH", "topology.yaml"),
		HistoryTable:      getEnv("SHARDHUB_HISTORY_TABLE", "shard_migrations"),
		FallbackToPrimary: strings.EqualFold(os.Getenv("SHARDHUB_FALLBACK_TO_PRIMARY"), "true"),
	}

	if raw := os.Getenv("SHARDHUB_REPLICA_RECOVERY_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("SHARDHUB_REPLICA_RECOVERY_DELAY: %w", err)
		}
		cfg.RecoveryDelay = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TopologyPath == "" {
		return errors.New("SHARDHUB_TOPOLOGY_PATH is required")
	}
	if c.HistoryTable == "" {
		return errors.New("SHARDHUB_HISTORY_TABLE must not be empty")
	}
	return nil
}

// TopologyFile is the YAML layout describing shards and routing.
type TopologyFile struct {
	Provider string        `yaml:"provider"`
	Shards   []ShardEntry  `yaml:"shards"`
	Active   []string      `yaml:"active"`
	Schema   string        `yaml:"schema"`
	Router   RouterSection `yaml:"router"`
}

type ShardEntry struct {
	ID              string   `yaml:"id"`
	DSN             string   `yaml:"dsn"`
	Replicas        []string `yaml:"replicas"`
	ReplicaStrategy string   `yaml:"replica_strategy"`
}

type RouterSection struct {
	// Strategy is one of hash, ring, range, time_bucket.
	Strategy     string          `yaml:"strategy"`
	VirtualNodes int             `yaml:"virtual_nodes"`
	Strict       bool            `yaml:"strict"`
	Boundaries   []BoundaryEntry `yaml:"boundaries"`
}

type BoundaryEntry struct {
	Shard string `yaml:"shard"`
	// Upper bounds a range strategy (lexicographic, exclusive).
	Upper string `yaml:"upper"`
	// Until bounds a time_bucket strategy (RFC 3339, exclusive).
	Until time.Time `yaml:"until"`
}

// LoadTopologyFile parses and validates the topology YAML.
func LoadTopologyFile(path string) (*TopologyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return ParseTopology(raw)
}

// ParseTopology parses topology YAML from memory.
func ParseTopology(raw []byte) (*TopologyFile, error) {
	var tf TopologyFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse topology file: %w", err)
	}
	if tf.Provider == "" {
		return nil, errors.New("topology: provider is required")
	}
	if len(tf.Shards) == 0 {
		return nil, errors.New("topology: at least one shard is required")
	}
	if tf.Router.Strategy == "" {
		tf.Router.Strategy = "hash"
	}
	return &tf, nil
}

// BuildTopology converts the parsed file into an immutable topology.
func (tf *TopologyFile) BuildTopology() (*topology.Topology, error) {
	shards := make([]topology.ShardInfo, 0, len(tf.Shards))
	for _, s := range tf.Shards {
		strategy := topology.ReplicaStrategy(s.ReplicaStrategy)
		switch strategy {
		case topology.ReplicaDefault, topology.ReplicaRoundRobin, topology.ReplicaRandom:
		default:
			return nil, fmt.Errorf("shard %s: unknown replica strategy %q", s.ID, s.ReplicaStrategy)
		}
		shards = append(shards, topology.ShardInfo{
			ShardID:                  s.ID,
			ConnectionString:         s.DSN,
			ReplicaConnectionStrings: s.Replicas,
			ReplicaStrategy:          strategy,
		})
	}
	return topology.New(shards, tf.Active)
}

// BuildStrategy converts the router section into a routing strategy over the
// topology's active shards.
func (tf *TopologyFile) BuildStrategy(topo *topology.Topology) (routing.Strategy, error) {
	switch tf.Router.Strategy {
	case "hash":
		return routing.NewHashStrategy(topo.ActiveShardIDs()), nil
	case "ring":
		return routing.NewRingStrategy(topo.ActiveShardIDs(), tf.Router.VirtualNodes), nil
	case "range":
		if len(tf.Router.Boundaries) == 0 {
			return nil, errors.New("topology: range routing requires boundaries")
		}
		boundaries := make([]routing.RangeBoundary, 0, len(tf.Router.Boundaries))
		for _, b := range tf.Router.Boundaries {
			if !topo.Has(b.Shard) {
				return nil, fmt.Errorf("range boundary references %s: %w", b.Shard, topology.ErrShardNotFound)
			}
			if b.Upper == "" {
				return nil, fmt.Errorf("range boundary for %s: upper is required", b.Shard)
			}
			boundaries = append(boundaries, routing.RangeBoundary{Upper: b.Upper, ShardID: b.Shard})
		}
		return routing.NewRangeStrategy(boundaries, tf.Router.Strict), nil
	case "time_bucket":
		if len(tf.Router.Boundaries) == 0 {
			return nil, errors.New("topology: time_bucket routing requires boundaries")
		}
		boundaries := make([]routing.TimeBoundary, 0, len(tf.Router.Boundaries))
		for _, b := range tf.Router.Boundaries {
			if !topo.Has(b.Shard) {
				return nil, fmt.Errorf("time boundary references %s: %w", b.Shard, topology.ErrShardNotFound)
			}
			if b.Until.IsZero() {
				return nil, fmt.Errorf("time boundary for %s: until is required", b.Shard)
			}
			boundaries = append(boundaries, routing.TimeBoundary{Until: b.Until, ShardID: b.Shard})
		}
		return routing.NewTimeBucketStrategy(boundaries, tf.Router.Strict), nil
	default:
		return nil, fmt.Errorf("topology: unknown router strategy %q", tf.Router.Strategy)
	}
}

// loadDotEnv fills in variables from a local .env file without overriding
// anything already set in the environment.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	vars, err := godotenv.Read(".env")
	if err != nil {
		return
	}
	for k, v := range vars {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
