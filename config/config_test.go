package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Cluster.BindAddr)
	assert.Equal(t, 8766, cfg.Cluster.Port)
	assert.Equal(t, 5, cfg.Cluster.HeartbeatInterval)
	assert.Equal(t, 15, cfg.Cluster.ElectionTimeout)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 10.0.0.1
  port: 9000
cluster:
  node_id: mesh-node-7
  heartbeat_interval: 2
  election_timeout: 10
store:
  backend: memory
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "mesh-node-7", cfg.Cluster.NodeID)
	assert.Equal(t, 2, cfg.Cluster.HeartbeatInterval)
	assert.Equal(t, 10, cfg.Cluster.ElectionTimeout)
	assert.Equal(t, "memory", cfg.Store.Backend)
	// Unspecified sections keep their defaults.
	assert.Equal(t, 8766, cfg.Cluster.Port)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 70000
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsElectionTimeout(t *testing.T) {
	path := writeConfigFile(t, `
cluster:
  heartbeat_interval: 10
  election_timeout: 10
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "election_timeout")
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Store.Backend)
}
