package alert

import (
	"encoding/json"
	"time"

	"github.com/fleetguard/fleetguard/pkg/feature"
)

type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "high":
		*s = SeverityHigh
	case "critical":
		*s = SeverityCritical
	}

	return nil
}

// Record categories. Degraded-round records come from the coordinator when a
// round fails quorum; behavioral records come from endpoint scorers.
const (
	CategoryBehavioral    = "behavioral"
	CategoryDegradedRound = "degraded_round"
)

// Record is an append-only alert. It is never mutated after creation;
// corrections happen via new records.
type Record struct {
	ID               string         `json:"id"`
	Category         string         `json:"category"`
	AgentID          string         `json:"agent_id"`
	Timestamp        time.Time      `json:"timestamp"`
	ThreatScore      float64        `json:"threat_score"`
	Features         feature.Vector `json:"features,omitempty"`
	Severity         Severity       `json:"severity"`
	Transition       string         `json:"transition,omitempty"`
	MitigationAction string         `json:"mitigation_action,omitempty"`
	Description      string         `json:"description,omitempty"`
}
