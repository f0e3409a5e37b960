package agent_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
)

func TestHoneypotDeploy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := agent.NewHoneypotManager("agent-1", dir)

	entries, err := m.Deploy()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		assert.Equal(t, "agent-1", e.AgentID)
		assert.NotEmpty(t, e.DecoyID)
		assert.False(t, e.Triggered)
		assert.FileExists(t, e.Path)
	}
}

func TestHoneypotSweepUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := agent.NewHoneypotManager("agent-1", dir)

	_, err := m.Deploy()
	require.NoError(t, err)

	assert.Empty(t, m.Sweep())
}

func TestHoneypotSweepDetectsModification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := agent.NewHoneypotManager("agent-1", dir)

	_, err := m.Deploy()
	require.NoError(t, err)

	target := filepath.Join(dir, "passwords.txt")
	require.NoError(t, os.WriteFile(target, []byte("encrypted garbage"), 0o644))

	triggered := m.Sweep()
	require.Len(t, triggered, 1)
	assert.Equal(t, target, triggered[0].Path)
	assert.True(t, triggered[0].Triggered)
	assert.False(t, triggered[0].TriggeredAt.IsZero())

	// A decoy triggers at most once.
	assert.Empty(t, m.Sweep())
}

func TestHoneypotSweepDetectsDeletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := agent.NewHoneypotManager("agent-1", dir)

	_, err := m.Deploy()
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "credit_cards.csv")))
	require.NoError(t, os.Remove(filepath.Join(dir, "bitcoin_wallet.dat")))

	triggered := m.Sweep()
	assert.Len(t, triggered, 2)
	assert.Empty(t, m.Sweep())
}

func TestHoneypotSweepSameSizeRewrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := agent.NewHoneypotManager("agent-1", dir)

	_, err := m.Deploy()
	require.NoError(t, err)

	// Overwrite with different bytes of identical length; the content hash
	// must still catch it.
	target := filepath.Join(dir, "passwords.txt")
	info, err := os.Stat(target)
	require.NoError(t, err)

	replacement := make([]byte, info.Size())
	for i := range replacement {
		replacement[i] = 'x'
	}
	require.NoError(t, os.WriteFile(target, replacement, 0o644))

	triggered := m.Sweep()
	require.Len(t, triggered, 1)
	assert.Equal(t, target, triggered[0].Path)
}
