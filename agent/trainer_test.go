package agent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
)

func sample(label float64, z float64) feature.Sample {
	values := make([]float64, feature.Arity())
	values[0] = z

	return feature.Sample{
		Vector: feature.Vector{
			AgentID:       "agent-1",
			SchemaVersion: 1,
			Timestamp:     time.Now().UTC(),
			Values:        values,
		},
		Label: label,
	}
}

func TestTrainProducesDelta(t *testing.T) {
	t.Parallel()

	tr := agent.NewTrainer("agent-1", 0.01, 20)
	snap := model.Zero(1)

	ds := feature.Dataset{
		SchemaVersion: 1,
		Samples: []feature.Sample{
			sample(1, 3),
			sample(1, 2.5),
			sample(0, -3),
			sample(0, -2.5),
		},
	}

	u, err := tr.Train(snap, ds)
	require.NoError(t, err)

	assert.Equal(t, "agent-1", u.AgentID)
	assert.Equal(t, snap.Version, u.BaseVersion)
	assert.Equal(t, 4, u.NumSamples)
	assert.Len(t, u.DeltaWeights, feature.Arity())

	// Malicious samples have a positive first feature, so gradient descent
	// must push its weight up.
	assert.Greater(t, u.DeltaWeights[0], 0.0)
	require.NoError(t, u.Validate())
}

func TestTrainSkipsMalformedSamples(t *testing.T) {
	t.Parallel()

	tr := agent.NewTrainer("agent-1", 0.01, 20)
	snap := model.Zero(1)

	bad := sample(1, 1)
	bad.Vector.Values = bad.Vector.Values[:2]

	wrongSchema := sample(0, -1)
	wrongSchema.Vector.SchemaVersion = 9

	ds := feature.Dataset{
		SchemaVersion: 1,
		Samples: []feature.Sample{
			sample(1, 2),
			bad,
			wrongSchema,
			sample(0, -2),
		},
	}

	u, err := tr.Train(snap, ds)
	require.NoError(t, err)
	assert.Equal(t, 2, u.NumSamples)
}

func TestTrainSchemaMismatch(t *testing.T) {
	t.Parallel()

	tr := agent.NewTrainer("agent-1", 0.01, 20)
	snap := model.Zero(1)

	ds := feature.Dataset{
		SchemaVersion: 2,
		Samples:       []feature.Sample{sample(1, 1)},
	}

	_, err := tr.Train(snap, ds)
	assert.ErrorIs(t, err, pkgerrors.ErrSchemaMismatch)
}

func TestTrainEmptyDataset(t *testing.T) {
	t.Parallel()

	tr := agent.NewTrainer("agent-1", 0.01, 20)
	snap := model.Zero(1)

	u, err := tr.Train(snap, feature.Dataset{SchemaVersion: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, u.NumSamples)
	for _, w := range u.DeltaWeights {
		assert.Zero(t, w)
	}
	assert.Zero(t, u.DeltaBias)
}
