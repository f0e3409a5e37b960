package agent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
)

var scorerCfg = agent.ScorerConfig{
	SuspiciousThreshold: 0.5,
	ConfirmThreshold:    0.7,
	ConfirmWindow:       3,
	CoolDownWindow:      5,
}

// scoreSnapshot maps the first feature straight into the logit: the returned
// score is sigmoid(values[0]).
func scoreSnapshot() model.Snapshot {
	s := model.Zero(1)
	s.Weights[0] = 1

	return s
}

// vec builds a valid vector whose score under scoreSnapshot is sigmoid(z).
// sigmoid(1) ~= 0.731, sigmoid(-2) ~= 0.119, sigmoid(0.5) ~= 0.622.
func vec(z float64) feature.Vector {
	values := make([]float64, feature.Arity())
	values[0] = z

	return feature.Vector{
		AgentID:       "agent-1",
		SchemaVersion: 1,
		Timestamp:     time.Now().UTC(),
		Values:        values,
	}
}

func TestScorerEscalatesToSuspicious(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	rec, err := s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "baseline->suspicious", rec.Transition)
	assert.Equal(t, alert.SeverityWarning, rec.Severity)
	assert.Equal(t, alert.CategoryBehavioral, rec.Category)
	assert.Equal(t, agent.Suspicious, s.State())
}

func TestScorerStaysBaselineBelowThreshold(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	for range 10 {
		rec, err := s.Observe(snap, vec(-2))
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Equal(t, agent.Baseline, s.State())
}

func TestScorerConfirmsAfterWindow(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	// First high sample escalates to suspicious and opens the confirm streak.
	rec, err := s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "baseline->suspicious", rec.Transition)

	rec, err = s.Observe(snap, vec(1))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "suspicious->confirmed", rec.Transition)
	assert.Equal(t, alert.SeverityHigh, rec.Severity)
	assert.Equal(t, agent.Confirmed, s.State())

	// Confirmed is quiet until mitigation.
	rec, err = s.Observe(snap, vec(1))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestScorerMidRangeResetsConfirmStreak(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	rec, err := s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Scores between the thresholds keep the session suspicious without
	// progressing toward confirmation.
	for range 10 {
		rec, err = s.Observe(snap, vec(0.5))
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Equal(t, agent.Suspicious, s.State())
}

func TestScorerCoolsDownSilently(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	rec, err := s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, agent.Suspicious, s.State())

	for i := range scorerCfg.CoolDownWindow {
		rec, err = s.Observe(snap, vec(-2))
		require.NoError(t, err)
		assert.Nil(t, rec, "cooldown sample %d must not alert", i)
	}
	assert.Equal(t, agent.Baseline, s.State())
}

func TestScorerMitigateIsTerminal(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	rec := s.Mitigate("honeypot decoy touched: /tmp/passwords.txt", agent.ActionKillProcess)
	require.NotNil(t, rec)
	assert.Equal(t, "baseline->mitigated", rec.Transition)
	assert.Equal(t, alert.SeverityCritical, rec.Severity)
	assert.Equal(t, string(agent.ActionKillProcess), rec.MitigationAction)
	assert.InDelta(t, 0.95, rec.ThreatScore, 1e-9)
	assert.Equal(t, agent.Mitigated, s.State())

	// No further alerts, no matter the score.
	obs, err := s.Observe(snap, vec(5))
	require.NoError(t, err)
	assert.Nil(t, obs)

	// Repeated mitigation is a no-op.
	assert.Nil(t, s.Mitigate("again", agent.ActionLockFolders))

	s.Reset()
	assert.Equal(t, agent.Baseline, s.State())

	rec2, err := s.Observe(snap, vec(1))
	require.NoError(t, err)
	require.NotNil(t, rec2)
	assert.Equal(t, "baseline->suspicious", rec2.Transition)
}

func TestScorerMitigateFromSuspicious(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	_, err := s.Observe(snap, vec(1))
	require.NoError(t, err)

	rec := s.Mitigate("honeypot decoy touched: /tmp/backup_keys.txt", agent.ActionKillProcess)
	require.NotNil(t, rec)
	assert.Equal(t, "suspicious->mitigated", rec.Transition)
}

func TestScorerRejectsMalformedTelemetry(t *testing.T) {
	t.Parallel()

	s := agent.NewScorer("agent-1", scorerCfg)
	snap := scoreSnapshot()

	v := vec(1)
	v.SchemaVersion = 2
	_, err := s.Observe(snap, v)
	assert.ErrorIs(t, err, pkgerrors.ErrSchemaMismatch)

	v = vec(1)
	v.Values = v.Values[:3]
	_, err = s.Observe(snap, v)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedTelemetry)

	// Bad samples leave the state machine untouched.
	assert.Equal(t, agent.Baseline, s.State())
}
