package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
rank: 1
cluster:
  num_servers: 4
transport:
  addresses: ["127.0.0.1:9001", "127.0.0.1:9002", "127.0.0.1:9003", "127.0.0.1:9004"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Cluster.BaseDataDir)
	assert.Equal(t, 0.1, cfg.Cluster.ReplicationRatio)
	assert.Equal(t, "tcp", cfg.Transport.Kind)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.IsClient())
	assert.Equal(t, 0, cfg.ServerID())
}

func TestLoadRejectsTooFewAddresses(t *testing.T) {
	path := writeTempConfig(t, `
rank: 1
cluster:
  num_servers: 4
transport:
  addresses: ["127.0.0.1:9001"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestRankZeroIsClient(t *testing.T) {
	path := writeTempConfig(t, `
rank: 0
cluster:
  num_servers: 2
transport:
  addresses: ["127.0.0.1:9001", "127.0.0.1:9002"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsClient())
}
