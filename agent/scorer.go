package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
)

type SessionState uint8

const (
	Baseline SessionState = iota
	Suspicious
	Confirmed
	Mitigated
)

func (s SessionState) String() string {
	switch s {
	case Baseline:
		return "baseline"
	case Suspicious:
		return "suspicious"
	case Confirmed:
		return "confirmed"
	case Mitigated:
		return "mitigated"
	default:
		return "unknown"
	}
}

type ScorerConfig struct {
	SuspiciousThreshold float64
	ConfirmThreshold    float64
	ConfirmWindow       int
	CoolDownWindow      int
}

// Scorer runs the per-session detection state machine over live telemetry.
// It emits exactly one alert per escalating transition; cooling back to
// baseline is silent. MITIGATED is terminal until Reset.
type Scorer struct {
	mu sync.Mutex

	agentID       string
	cfg           ScorerConfig
	state         SessionState
	confirmStreak int
	coolStreak    int
}

func NewScorer(agentID string, cfg ScorerConfig) *Scorer {
	return &Scorer{
		agentID: agentID,
		cfg:     cfg,
		state:   Baseline,
	}
}

func (s *Scorer) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Observe scores one telemetry vector against the snapshot and advances the
// state machine. It returns a non-nil alert when an escalating transition
// fires. A malformed or out-of-schema vector returns an error and leaves the
// state untouched; the caller logs and skips it.
func (s *Scorer) Observe(snapshot model.Snapshot, v feature.Vector) (*alert.Record, error) {
	score, err := snapshot.Score(v)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Mitigated {
		return nil, nil
	}

	if score < s.cfg.SuspiciousThreshold {
		s.coolStreak++
	} else {
		s.coolStreak = 0
	}
	if s.coolStreak >= s.cfg.CoolDownWindow && s.state != Baseline {
		s.state = Baseline
		s.confirmStreak = 0

		return nil, nil
	}

	switch s.state {
	case Baseline:
		if score > s.cfg.SuspiciousThreshold {
			s.state = Suspicious
			s.confirmStreak = 0
			if score > s.cfg.ConfirmThreshold {
				s.confirmStreak = 1
			}

			return s.newAlert(score, v, "baseline->suspicious", alert.SeverityWarning, ""), nil
		}
	case Suspicious:
		if score > s.cfg.ConfirmThreshold {
			s.confirmStreak++
			if s.confirmStreak >= s.cfg.ConfirmWindow {
				s.state = Confirmed

				return s.newAlert(score, v, "suspicious->confirmed", alert.SeverityHigh, ""), nil
			}
		} else {
			s.confirmStreak = 0
		}
	case Confirmed, Mitigated:
	}

	return nil, nil
}

// Mitigate records a mitigation trigger, such as a honeypot touch, and moves
// the session to MITIGATED. Honeypot touches are definitive, so any
// non-mitigated session escalates directly.
func (s *Scorer) Mitigate(trigger string, action Action) *alert.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Mitigated {
		return nil
	}

	from := s.state
	s.state = Mitigated
	s.confirmStreak = 0
	s.coolStreak = 0

	rec := s.newAlert(honeypotThreatScore, feature.Vector{}, fmt.Sprintf("%s->mitigated", from), alert.SeverityCritical, string(action))
	rec.Description = trigger

	return rec
}

// Reset returns a mitigated session to baseline. It is a manual operation;
// the state machine never leaves MITIGATED by itself.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Baseline
	s.confirmStreak = 0
	s.coolStreak = 0
}

func (s *Scorer) newAlert(score float64, v feature.Vector, transition string, severity alert.Severity, action string) *alert.Record {
	return &alert.Record{
		ID:               uuid.NewString(),
		Category:         alert.CategoryBehavioral,
		AgentID:          s.agentID,
		Timestamp:        time.Now().UTC(),
		ThreatScore:      score,
		Features:         v,
		Severity:         severity,
		Transition:       transition,
		MitigationAction: action,
	}
}
