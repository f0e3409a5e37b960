package model

import (
	"math"
	"time"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
)

// Snapshot is an immutable, versioned global model state. Version equals the
// round id that produced it. A new round always produces a new snapshot.
type Snapshot struct {
	Version       uint64    `json:"version"`
	SchemaVersion int       `json:"schema_version"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	CreatedAt     time.Time `json:"created_at"`
}

// Zero returns the initial snapshot for version 0, matching the feature
// schema arity.
func Zero(schemaVersion int) Snapshot {
	return Snapshot{
		Version:       0,
		SchemaVersion: schemaVersion,
		Weights:       make([]float64, feature.Arity()),
		Bias:          0,
		CreatedAt:     time.Now().UTC(),
	}
}

// Score runs the linear classifier against one feature vector and returns a
// threat score in [0, 1].
func (s Snapshot) Score(v feature.Vector) (float64, error) {
	if err := v.Validate(s.SchemaVersion); err != nil {
		return 0, err
	}
	if len(s.Weights) != len(v.Values) {
		return 0, pkgerrors.ErrInvalidData
	}

	z := s.Bias
	for i, w := range s.Weights {
		z += w * v.Values[i]
	}

	return 1 / (1 + math.Exp(-z)), nil
}

// Apply produces the snapshot for roundID by adding an aggregated delta to
// the base snapshot. The schema version is carried over unchanged.
func (s Snapshot) Apply(roundID uint64, deltaWeights []float64, deltaBias float64) Snapshot {
	weights := make([]float64, len(s.Weights))
	for i := range s.Weights {
		weights[i] = s.Weights[i] + deltaWeights[i]
	}

	return Snapshot{
		Version:       roundID,
		SchemaVersion: s.SchemaVersion,
		Weights:       weights,
		Bias:          s.Bias + deltaBias,
		CreatedAt:     time.Now().UTC(),
	}
}

// Update is a client's locally computed contribution toward the next
// snapshot. It carries a parameter delta and a sample count, never raw
// feature vectors.
type Update struct {
	AgentID      string    `json:"agent_id"`
	RoundID      uint64    `json:"round_id"`
	BaseVersion  uint64    `json:"base_version"`
	DeltaWeights []float64 `json:"delta_weights"`
	DeltaBias    float64   `json:"delta_bias"`
	NumSamples   int       `json:"num_samples"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Validate checks structural invariants of an update before admission.
func (u Update) Validate() error {
	if u.AgentID == "" {
		return pkgerrors.ErrEmptyKey
	}
	if len(u.DeltaWeights) != feature.Arity() {
		return pkgerrors.ErrInvalidData
	}
	if u.NumSamples < 0 {
		return pkgerrors.ErrInvalidData
	}
	for _, w := range u.DeltaWeights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return pkgerrors.ErrInvalidData
		}
	}

	return nil
}
