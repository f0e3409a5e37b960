package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// ErrStaleRound marks a client update whose round id no longer matches
	// the round the coordinator is accepting updates for. Stale updates are
	// discarded, never fatal.
	ErrStaleRound = errors.New("update targets a closed or mismatched round")

	// ErrSchemaMismatch marks a feature-vector or dataset schema version that
	// differs from the one the current model snapshot was trained against.
	ErrSchemaMismatch = errors.New("feature schema version mismatch")

	// ErrQuorumNotMet marks a round that reached its deadline with fewer
	// submissions than the configured minimum quorum.
	ErrQuorumNotMet = errors.New("quorum not met before round deadline")

	// ErrZeroSamples guards aggregation against a round in which every
	// accepted update carried zero samples.
	ErrZeroSamples = errors.New("zero total samples in round")

	// ErrMalformedTelemetry marks a feature vector that cannot be scored.
	// The sample is skipped, the scoring loop continues.
	ErrMalformedTelemetry = errors.New("malformed telemetry sample")

	ErrAgentNotRegistered = errors.New("agent is not registered")
	ErrAgentInactive      = errors.New("agent is marked inactive")
)
