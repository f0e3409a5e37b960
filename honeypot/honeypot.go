package honeypot

import "time"

// Entry is a planted decoy registered by an agent. Triggered flips
// false -> true exactly once, when the decoy is touched.
type Entry struct {
	DecoyID     string    `json:"decoy_id"`
	AgentID     string    `json:"agent_id"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
	Triggered   bool      `json:"triggered"`
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
}
