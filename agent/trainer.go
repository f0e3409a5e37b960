package agent

import (
	"math"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
)

// Trainer fits the local classifier against the endpoint's private dataset
// and emits a parameter delta. Raw samples never leave this package.
type Trainer struct {
	AgentID      string
	LearningRate float64
	Epochs       int
}

func NewTrainer(agentID string, learningRate float64, epochs int) *Trainer {
	return &Trainer{
		AgentID:      agentID,
		LearningRate: learningRate,
		Epochs:       epochs,
	}
}

// Train runs logistic-regression gradient descent starting from the given
// snapshot and returns the delta between the locally fitted parameters and
// the snapshot. The dataset is read-only; malformed samples are skipped and
// do not count toward NumSamples.
func (t *Trainer) Train(snapshot model.Snapshot, ds feature.Dataset) (model.Update, error) {
	if ds.SchemaVersion != snapshot.SchemaVersion {
		return model.Update{}, pkgerrors.ErrSchemaMismatch
	}

	valid := make([]feature.Sample, 0, len(ds.Samples))
	for _, s := range ds.Samples {
		if err := s.Vector.Validate(snapshot.SchemaVersion); err != nil {
			continue
		}
		valid = append(valid, s)
	}

	weights := make([]float64, len(snapshot.Weights))
	copy(weights, snapshot.Weights)
	bias := snapshot.Bias

	n := float64(len(valid))
	for epoch := 0; epoch < t.Epochs && n > 0; epoch++ {
		gradW := make([]float64, len(weights))
		var gradB float64

		for _, s := range valid {
			z := bias
			for i, w := range weights {
				z += w * s.Vector.Values[i]
			}
			p := 1 / (1 + math.Exp(-z))
			residual := p - s.Label

			for i, x := range s.Vector.Values {
				gradW[i] += residual * x
			}
			gradB += residual
		}

		for i := range weights {
			weights[i] -= t.LearningRate * gradW[i] / n
		}
		bias -= t.LearningRate * gradB / n
	}

	deltaWeights := make([]float64, len(weights))
	for i := range weights {
		deltaWeights[i] = weights[i] - snapshot.Weights[i]
	}

	return model.Update{
		AgentID:      t.AgentID,
		BaseVersion:  snapshot.Version,
		DeltaWeights: deltaWeights,
		DeltaBias:    bias - snapshot.Bias,
		NumSamples:   len(valid),
	}, nil
}
