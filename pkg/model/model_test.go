package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
)

func vector(values ...float64) feature.Vector {
	full := make([]float64, feature.Arity())
	copy(full, values)

	return feature.Vector{
		AgentID:       "agent-0",
		SchemaVersion: 1,
		Timestamp:     time.Now().UTC(),
		Values:        full,
	}
}

func TestZeroSnapshot(t *testing.T) {
	t.Parallel()

	s := model.Zero(1)
	assert.Zero(t, s.Version)
	assert.Equal(t, 1, s.SchemaVersion)
	assert.Len(t, s.Weights, feature.Arity())

	// The zero model is indifferent: every vector scores 0.5.
	score, err := s.Score(vector(3, 1, 4))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	s := model.Zero(1)
	s.Weights[0] = 10

	high, err := s.Score(vector(100))
	require.NoError(t, err)
	assert.Greater(t, high, 0.99)
	assert.LessOrEqual(t, high, 1.0)

	low, err := s.Score(vector(-100))
	require.NoError(t, err)
	assert.Less(t, low, 0.01)
	assert.GreaterOrEqual(t, low, 0.0)
}

func TestScoreRejectsBadVectors(t *testing.T) {
	t.Parallel()

	s := model.Zero(1)

	v := vector(1)
	v.SchemaVersion = 2
	_, err := s.Score(v)
	assert.ErrorIs(t, err, pkgerrors.ErrSchemaMismatch)

	v = vector(1)
	v.Values = v.Values[:4]
	_, err = s.Score(v)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedTelemetry)

	v = vector(1)
	v.Values[2] = math.NaN()
	_, err = s.Score(v)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedTelemetry)
}

func TestApply(t *testing.T) {
	t.Parallel()

	base := model.Zero(1)
	delta := make([]float64, feature.Arity())
	delta[0] = 0.5

	next := base.Apply(7, delta, -0.1)
	assert.Equal(t, uint64(7), next.Version)
	assert.Equal(t, base.SchemaVersion, next.SchemaVersion)
	assert.InDelta(t, 0.5, next.Weights[0], 1e-9)
	assert.InDelta(t, -0.1, next.Bias, 1e-9)

	// Apply never mutates the base snapshot.
	assert.Zero(t, base.Weights[0])
	assert.Zero(t, base.Bias)
}

func TestUpdateValidate(t *testing.T) {
	t.Parallel()

	valid := model.Update{
		AgentID:      "agent-0",
		DeltaWeights: make([]float64, feature.Arity()),
	}
	require.NoError(t, valid.Validate())

	noID := valid
	noID.AgentID = ""
	assert.ErrorIs(t, noID.Validate(), pkgerrors.ErrEmptyKey)

	short := valid
	short.DeltaWeights = make([]float64, 3)
	assert.ErrorIs(t, short.Validate(), pkgerrors.ErrInvalidData)

	negative := valid
	negative.NumSamples = -1
	assert.ErrorIs(t, negative.Validate(), pkgerrors.ErrInvalidData)

	nan := model.Update{AgentID: "agent-0", DeltaWeights: make([]float64, feature.Arity())}
	nan.DeltaWeights[0] = math.Inf(1)
	assert.ErrorIs(t, nan.Validate(), pkgerrors.ErrInvalidData)
}
