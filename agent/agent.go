package agent

import "time"

const aliveHistoryLimit = 10

// Agent is the coordinator-side record of a registered endpoint. An agent
// announces itself with its id, schema version, and organization label
// before it is added to a round's expected set.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name,omitempty"`
	Organization  string      `json:"organization"`
	SchemaVersion int         `json:"schema_version"`
	Alive         bool        `json:"alive"`
	AliveHistory  []time.Time `json:"alive_history,omitempty"`
	MissedRounds  int         `json:"missed_rounds"`
	Inactive      bool        `json:"inactive"`
	RegisteredAt  time.Time   `json:"registered_at"`
}

// SetAlive updates liveness from the latest heartbeat window.
func (a *Agent) SetAlive() {
	a.Alive = false
	if len(a.AliveHistory) > 0 {
		last := a.AliveHistory[len(a.AliveHistory)-1]
		a.Alive = time.Since(last) < 2*time.Minute
	}
}

// RecordHeartbeat appends a liveness timestamp, keeping a bounded history.
func (a *Agent) RecordHeartbeat(at time.Time) {
	a.Alive = true
	a.AliveHistory = append(a.AliveHistory, at)
	if len(a.AliveHistory) > aliveHistoryLimit {
		a.AliveHistory = a.AliveHistory[1:]
	}
}

type Page struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Agents []Agent `json:"agents"`
}
