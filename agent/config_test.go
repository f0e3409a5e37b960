package agent_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `broker_url = "tcp://localhost:1883"
agent_id = "agent-0"
agent_key = "secret"
channel_id = "fleet"
name = "crimson-falcon"
organization = "acme"
dataset_path = "dataset.json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := agent.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "agent-0", cfg.AgentID)
	assert.Equal(t, "acme", cfg.Organization)

	// Unset fields take defaults.
	assert.Equal(t, 1, cfg.SchemaVersion)
	assert.Equal(t, 30*time.Second, cfg.LivelinessInterval)
	assert.InDelta(t, 0.5, cfg.SuspiciousThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.ConfirmThreshold, 1e-9)
	assert.Equal(t, 3, cfg.ConfirmWindow)
	assert.Equal(t, 20, cfg.Epochs)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`broker_url = "tcp://localhost:1883"`), 0o600))

	_, err := agent.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigBadThresholds(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `broker_url = "tcp://localhost:1883"
agent_id = "agent-0"
channel_id = "fleet"
organization = "acme"
suspicious_threshold = 0.9
confirm_threshold = 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := agent.LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := agent.Config{
		BrokerURL:     "tcp://localhost:1883",
		AgentID:       "agent-0",
		AgentKey:      "secret",
		ChannelID:     "fleet",
		Organization:  "acme",
		SchemaVersion: 1,
		DatasetPath:   "dataset.json",
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := agent.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.AgentID, loaded.AgentID)
	assert.Equal(t, cfg.AgentKey, loaded.AgentKey)
	assert.Equal(t, cfg.DatasetPath, loaded.DatasetPath)
}
