// Package config loads the construction parameters the design allows:
// number of servers, base data directory, suffix-mode flag, base
// replication ratio, popularity threshold, decay factor, and the
// adaptive-enabled flag. Grounded on the teacher-adjacent PairDB
// storage-node's yaml.v3-based config.Load/Validate/setDefaults split.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClusterConfig holds the parameters shared by every process in the
// cluster, independent of which rank it runs as.
type ClusterConfig struct {
	NumServers           int     `yaml:"num_servers"`
	BaseDataDir          string  `yaml:"base_data_dir"`
	SuffixMode           bool    `yaml:"suffix_mode"`
	ReplicationRatio     float64 `yaml:"replication_ratio"`
	PopularityThreshold  float64 `yaml:"popularity_threshold"`
	PopularityDecay      float64 `yaml:"popularity_decay"`
	AdaptiveEnabled      bool    `yaml:"adaptive_enabled"`
	MaxReplicationFactor int     `yaml:"max_replication_factor"`
}

// TransportConfig holds the addresses a process needs to talk to
// every other rank, and which transport to use.
type TransportConfig struct {
	Kind            string        `yaml:"kind"` // "tcp" or "grpc"
	Addresses       []string      `yaml:"addresses"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// Config is the full construction-parameter document for one process.
type Config struct {
	Rank      int             `yaml:"rank"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IsClient reports whether this process plays the client role, per
// the design's "process role is derived from rank (0 = client, >0 =
// server)".
func (c *Config) IsClient() bool {
	return c.Rank == 0
}

// ServerID returns this process's server id when it is not the
// client, i.e. rank - 1, so server ranks 1..N map to server ids 0..N-1.
func (c *Config) ServerID() int {
	return c.Rank - 1
}

// Load reads filePath as YAML into a Config, fills in defaults for
// anything left zero-valued, and validates the result.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Cluster.BaseDataDir == "" {
		cfg.Cluster.BaseDataDir = "./data"
	}
	if cfg.Cluster.ReplicationRatio == 0 {
		cfg.Cluster.ReplicationRatio = 0.1
	}
	if cfg.Cluster.PopularityThreshold == 0 {
		cfg.Cluster.PopularityThreshold = 10.0
	}
	if cfg.Cluster.PopularityDecay == 0 {
		cfg.Cluster.PopularityDecay = 0.1
	}
	if cfg.Cluster.MaxReplicationFactor == 0 {
		cfg.Cluster.MaxReplicationFactor = 5
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "tcp"
	}
	if cfg.Transport.DialTimeout == 0 {
		cfg.Transport.DialTimeout = 2 * time.Second
	}
	if cfg.Transport.HeartbeatPeriod == 0 {
		cfg.Transport.HeartbeatPeriod = 500 * time.Millisecond
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks the invariants the rest of the system assumes hold.
func (c *Config) Validate() error {
	if c.Cluster.NumServers < 1 {
		return fmt.Errorf("cluster.num_servers must be at least 1")
	}
	if c.Rank < 0 || c.Rank > c.Cluster.NumServers {
		return fmt.Errorf("rank must be between 0 and cluster.num_servers")
	}
	if len(c.Transport.Addresses) < c.Cluster.NumServers {
		return fmt.Errorf("transport.addresses must have one entry per server")
	}
	if c.Transport.Kind != "tcp" && c.Transport.Kind != "grpc" {
		return fmt.Errorf("transport.kind must be \"tcp\" or \"grpc\"")
	}
	if c.Cluster.ReplicationRatio <= 0 || c.Cluster.ReplicationRatio > 1 {
		return fmt.Errorf("cluster.replication_ratio must be in (0, 1]")
	}
	return nil
}
