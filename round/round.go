package round

import (
	"encoding/json"
	"time"

	"github.com/fleetguard/fleetguard/pkg/model"
)

type State uint8

const (
	Open State = iota
	Aggregating
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Aggregating:
		return "aggregating"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "open":
		*s = Open
	case "aggregating":
		*s = Aggregating
	case "closed":
		*s = Closed
	case "failed":
		*s = Failed
	}

	return nil
}

// Round is one cycle of federated update collection and aggregation. The
// coordinator owns it exclusively; ids are strictly increasing and gapless.
type Round struct {
	ID       uint64                  `json:"id"`
	State    State                   `json:"state"`
	OpenedAt time.Time               `json:"opened_at"`
	Deadline time.Time               `json:"deadline"`
	ClosedAt time.Time               `json:"closed_at,omitempty"`
	Expected []string                `json:"expected"`
	Received map[string]model.Update `json:"received"`
}

func New(id uint64, expected []string, openedAt time.Time, timeout time.Duration) Round {
	return Round{
		ID:       id,
		State:    Open,
		OpenedAt: openedAt,
		Deadline: openedAt.Add(timeout),
		Expected: expected,
		Received: make(map[string]model.Update),
	}
}

// IsExpected reports whether the agent was registered and active when the
// round opened.
func (r Round) IsExpected(agentID string) bool {
	for _, id := range r.Expected {
		if id == agentID {
			return true
		}
	}

	return false
}

// AllSubmitted reports whether every expected agent has submitted.
func (r Round) AllSubmitted() bool {
	return len(r.Expected) > 0 && len(r.Received) == len(r.Expected)
}

// QuorumMet reports whether the round has enough submissions to aggregate.
func (r Round) QuorumMet(minQuorum int) bool {
	return len(r.Received) >= minQuorum
}

// Summary is the read-only view served to the dashboard. It never exposes
// raw feature vectors or update payloads.
type Summary struct {
	ID           uint64    `json:"id"`
	State        State     `json:"state"`
	Participants int       `json:"participants"`
	OpenedAt     time.Time `json:"opened_at"`
	ClosedAt     time.Time `json:"closed_at,omitempty"`
}

func (r Round) Summary() Summary {
	return Summary{
		ID:           r.ID,
		State:        r.State,
		Participants: len(r.Received),
		OpenedAt:     r.OpenedAt,
		ClosedAt:     r.ClosedAt,
	}
}

type Page struct {
	Offset uint64    `json:"offset"`
	Limit  uint64    `json:"limit"`
	Total  uint64    `json:"total"`
	Rounds []Summary `json:"rounds"`
}
