package feature

import (
	"math"
	"time"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
)

// SchemaVersion is the version of the behavioral feature schema this build
// speaks. Bumping it is an explicit out-of-band operation; the coordinator
// never infers a schema change from incoming data.
const SchemaVersion = 1

// FieldNames is the ordered field schema for one observation unit. The order
// is part of the wire contract: Values[i] always corresponds to
// FieldNames[i].
var FieldNames = []string{
	"files_modified_per_min",
	"files_created_per_min",
	"files_deleted_per_min",
	"avg_entropy",
	"unique_extension_count",
	"max_cpu_percent",
	"total_memory_mb",
	"suspicious_process_count",
	"disk_write_mb_per_sec",
	"process_creation_rate",
	"honeypot_touch_count",
	"ransom_note_indicator",
	"entropy_delta_rate",
	"file_rename_burst",
	"injection_indicator_count",
}

// Arity returns the number of fields in the current schema.
func Arity() int {
	return len(FieldNames)
}

// Vector is one observation unit produced by endpoint telemetry collection.
type Vector struct {
	AgentID       string    `json:"agent_id"`
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Values        []float64 `json:"values"`
}

// Validate checks the vector against the schema version the current model
// was trained with. Mismatched versions are rejected, never coerced.
func (v Vector) Validate(modelSchemaVersion int) error {
	if v.SchemaVersion != modelSchemaVersion {
		return pkgerrors.ErrSchemaMismatch
	}
	if len(v.Values) != Arity() {
		return pkgerrors.ErrMalformedTelemetry
	}
	for _, val := range v.Values {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return pkgerrors.ErrMalformedTelemetry
		}
	}

	return nil
}

// Sample is a labeled vector retained locally for training. Samples never
// leave the endpoint.
type Sample struct {
	Vector Vector  `json:"vector"`
	Label  float64 `json:"label"`
}

// Dataset is the client-private training set.
type Dataset struct {
	SchemaVersion int      `json:"schema_version"`
	Samples       []Sample `json:"samples"`
}
