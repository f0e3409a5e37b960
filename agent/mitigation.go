package agent

// Action identifies a mitigation step taken when a session is confirmed
// malicious. Actions run in demo mode: they are recorded on the alert and
// reported to the coordinator without touching the host.
type Action string

const (
	ActionKillProcess      Action = "KILL_PROCESS"
	ActionLockFolders      Action = "LOCK_FOLDERS"
	ActionNetworkIsolation Action = "NETWORK_ISOLATION"
)

// honeypotThreatScore is the score recorded on honeypot-driven alerts.
// Touching a decoy is high-confidence evidence regardless of the model's
// current output.
const honeypotThreatScore = 0.95

// Playbook is the ordered set of actions applied on mitigation. The first
// entry is recorded as the primary action on the alert.
var Playbook = []Action{
	ActionKillProcess,
	ActionLockFolders,
	ActionNetworkIsolation,
}
