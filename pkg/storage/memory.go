package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

type memoryRounds struct {
	sync.Mutex

	rounds map[uint64]round.Round
	lastID uint64
}

func NewMemoryRounds() RoundRepository {
	return &memoryRounds{rounds: make(map[uint64]round.Round)}
}

func (m *memoryRounds) Create(_ context.Context, r round.Round) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.rounds[r.ID]; ok {
		return pkgerrors.ErrEntityExists
	}
	m.rounds[r.ID] = r
	if r.ID > m.lastID {
		m.lastID = r.ID
	}

	return nil
}

func (m *memoryRounds) Update(_ context.Context, r round.Round) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.rounds[r.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	m.rounds[r.ID] = r

	return nil
}

func (m *memoryRounds) Get(_ context.Context, id uint64) (round.Round, error) {
	m.Lock()
	defer m.Unlock()

	r, ok := m.rounds[id]
	if !ok {
		return round.Round{}, pkgerrors.ErrNotFound
	}

	return r, nil
}

func (m *memoryRounds) LastID(context.Context) (uint64, error) {
	m.Lock()
	defer m.Unlock()

	return m.lastID, nil
}

func (m *memoryRounds) List(_ context.Context, offset, limit uint64) ([]round.Summary, uint64, error) {
	m.Lock()
	defer m.Unlock()

	ids := make([]uint64, 0, len(m.rounds))
	for id := range m.rounds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	total := uint64(len(ids))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	summaries := make([]round.Summary, 0, end-offset)
	for _, id := range ids[offset:end] {
		summaries = append(summaries, m.rounds[id].Summary())
	}

	return summaries, total, nil
}

type memorySnapshots struct {
	sync.Mutex

	snapshots map[uint64]model.Snapshot
	latest    uint64
	hasAny    bool
}

func NewMemorySnapshots() SnapshotRepository {
	return &memorySnapshots{snapshots: make(map[uint64]model.Snapshot)}
}

func (m *memorySnapshots) Save(_ context.Context, s model.Snapshot) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.snapshots[s.Version]; ok {
		return pkgerrors.ErrEntityExists
	}
	m.snapshots[s.Version] = s
	if !m.hasAny || s.Version > m.latest {
		m.latest = s.Version
		m.hasAny = true
	}

	return nil
}

func (m *memorySnapshots) Get(_ context.Context, version uint64) (model.Snapshot, error) {
	m.Lock()
	defer m.Unlock()

	s, ok := m.snapshots[version]
	if !ok {
		return model.Snapshot{}, pkgerrors.ErrNotFound
	}

	return s, nil
}

func (m *memorySnapshots) Latest(context.Context) (model.Snapshot, error) {
	m.Lock()
	defer m.Unlock()

	if !m.hasAny {
		return model.Snapshot{}, pkgerrors.ErrNotFound
	}

	return m.snapshots[m.latest], nil
}

type memoryAlerts struct {
	sync.Mutex

	records []alert.Record
}

func NewMemoryAlerts() AlertRepository {
	return &memoryAlerts{}
}

func (m *memoryAlerts) Append(_ context.Context, rec alert.Record) error {
	if rec.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()
	m.records = append(m.records, rec)

	return nil
}

func (m *memoryAlerts) List(_ context.Context, limit uint64) ([]alert.Record, error) {
	m.Lock()
	defer m.Unlock()

	n := uint64(len(m.records))
	if limit > n {
		limit = n
	}

	// Newest first.
	out := make([]alert.Record, 0, limit)
	for i := uint64(0); i < limit; i++ {
		out = append(out, m.records[n-1-i])
	}

	return out, nil
}

type memoryAgents struct {
	sync.Mutex

	agents map[string]agent.Agent
}

func NewMemoryAgents() AgentRepository {
	return &memoryAgents{agents: make(map[string]agent.Agent)}
}

func (m *memoryAgents) Create(_ context.Context, a agent.Agent) error {
	if a.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	if _, ok := m.agents[a.ID]; ok {
		return pkgerrors.ErrEntityExists
	}
	m.agents[a.ID] = a

	return nil
}

func (m *memoryAgents) Get(_ context.Context, id string) (agent.Agent, error) {
	if id == "" {
		return agent.Agent{}, pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	a, ok := m.agents[id]
	if !ok {
		return agent.Agent{}, pkgerrors.ErrNotFound
	}

	return a, nil
}

func (m *memoryAgents) Update(_ context.Context, a agent.Agent) error {
	if a.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	if _, ok := m.agents[a.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	m.agents[a.ID] = a

	return nil
}

func (m *memoryAgents) List(_ context.Context, offset, limit uint64) ([]agent.Agent, uint64, error) {
	m.Lock()
	defer m.Unlock()

	ids := make([]string, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := uint64(len(ids))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]agent.Agent, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, m.agents[id])
	}

	return out, total, nil
}

type memoryHoneypots struct {
	sync.Mutex

	entries map[string]honeypot.Entry
}

func NewMemoryHoneypots() HoneypotRepository {
	return &memoryHoneypots{entries: make(map[string]honeypot.Entry)}
}

func (m *memoryHoneypots) Register(_ context.Context, e honeypot.Entry) error {
	if e.DecoyID == "" {
		return pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	if _, ok := m.entries[e.DecoyID]; ok {
		return pkgerrors.ErrEntityExists
	}
	m.entries[e.DecoyID] = e

	return nil
}

func (m *memoryHoneypots) Trigger(_ context.Context, decoyID string) error {
	if decoyID == "" {
		return pkgerrors.ErrEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	e, ok := m.entries[decoyID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if e.Triggered {
		return nil
	}
	e.Triggered = true
	e.TriggeredAt = time.Now().UTC()
	m.entries[decoyID] = e

	return nil
}

func (m *memoryHoneypots) List(context.Context) ([]honeypot.Entry, error) {
	m.Lock()
	defer m.Unlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]honeypot.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.entries[id])
	}

	return out, nil
}
