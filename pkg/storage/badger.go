package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

const (
	roundPrefix    = "round/"
	snapshotPrefix = "snapshot/"
	alertPrefix    = "alert/"
	agentPrefix    = "agent/"
	honeypotPrefix = "honeypot/"

	// Reverse iteration seek anchor: '@' sorts after '/' + any digit.
	seekSuffix = "@"
)

type badgerStore struct {
	sync.Mutex

	db       *badger.DB
	alertSeq *badger.Sequence
}

// NewBadgerRepositories opens a badger-backed repository set. All
// repositories share one database handle; the returned Closer releases it.
func NewBadgerRepositories(dataDir string) (*Repositories, error) {
	if dataDir == "" {
		dataDir = "./data/badger"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dataDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	seq, err := db.GetSequence([]byte("seq/alerts"), 128)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to open alert sequence: %w", err)
	}

	bs := &badgerStore{db: db, alertSeq: seq}

	return &Repositories{
		Rounds:    &badgerRounds{bs},
		Snapshots: &badgerSnapshots{bs},
		Alerts:    &badgerAlerts{bs},
		Agents:    &badgerAgents{bs},
		Honeypots: &badgerHoneypots{bs},
		Closer:    bs,
	}, nil
}

func (bs *badgerStore) Close() error {
	if err := bs.alertSeq.Release(); err != nil {
		return err
	}

	return bs.db.Close()
}

func (bs *badgerStore) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (bs *badgerStore) get(key []byte, out any) error {
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return pkgerrors.ErrNotFound
	}

	return err
}

func (bs *badgerStore) exists(key []byte) (bool, error) {
	err := bs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func roundKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", roundPrefix, id))
}

func snapshotKey(version uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", snapshotPrefix, version))
}

type badgerRounds struct {
	*badgerStore
}

func (b *badgerRounds) Create(_ context.Context, r round.Round) error {
	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(roundKey(r.ID))
	if err != nil {
		return err
	}
	if ok {
		return pkgerrors.ErrEntityExists
	}

	return b.set(roundKey(r.ID), r)
}

func (b *badgerRounds) Update(_ context.Context, r round.Round) error {
	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(roundKey(r.ID))
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.ErrNotFound
	}

	return b.set(roundKey(r.ID), r)
}

func (b *badgerRounds) Get(_ context.Context, id uint64) (round.Round, error) {
	var r round.Round
	if err := b.get(roundKey(id), &r); err != nil {
		return round.Round{}, err
	}

	return r, nil
}

func (b *badgerRounds) LastID(context.Context) (uint64, error) {
	var last uint64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek([]byte(roundPrefix + seekSuffix))
		if it.ValidForPrefix([]byte(roundPrefix)) {
			var id uint64
			if _, err := fmt.Sscanf(string(it.Item().Key()), roundPrefix+"%d", &id); err == nil {
				last = id
			}
		}

		return nil
	})

	return last, err
}

func (b *badgerRounds) List(_ context.Context, offset, limit uint64) ([]round.Summary, uint64, error) {
	var summaries []round.Summary
	var total uint64

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		var idx uint64
		for it.Seek([]byte(roundPrefix + seekSuffix)); it.ValidForPrefix([]byte(roundPrefix)); it.Next() {
			total++
			if idx < offset || uint64(len(summaries)) >= limit {
				idx++

				continue
			}
			idx++

			var r round.Round
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			summaries = append(summaries, r.Summary())
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

type badgerSnapshots struct {
	*badgerStore
}

func (b *badgerSnapshots) Save(_ context.Context, s model.Snapshot) error {
	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(snapshotKey(s.Version))
	if err != nil {
		return err
	}
	if ok {
		return pkgerrors.ErrEntityExists
	}

	return b.set(snapshotKey(s.Version), s)
}

func (b *badgerSnapshots) Get(_ context.Context, version uint64) (model.Snapshot, error) {
	var s model.Snapshot
	if err := b.get(snapshotKey(version), &s); err != nil {
		return model.Snapshot{}, err
	}

	return s, nil
}

func (b *badgerSnapshots) Latest(context.Context) (model.Snapshot, error) {
	var snapshot model.Snapshot
	found := false

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek([]byte(snapshotPrefix + seekSuffix))
		if !it.ValidForPrefix([]byte(snapshotPrefix)) {
			return nil
		}
		found = true

		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	if !found {
		return model.Snapshot{}, pkgerrors.ErrNotFound
	}

	return snapshot, nil
}

type badgerAlerts struct {
	*badgerStore
}

func (b *badgerAlerts) Append(_ context.Context, rec alert.Record) error {
	if rec.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	seq, err := b.alertSeq.Next()
	if err != nil {
		return err
	}
	key := []byte(fmt.Sprintf("%s%020d", alertPrefix, seq))

	return b.set(key, rec)
}

func (b *badgerAlerts) List(_ context.Context, limit uint64) ([]alert.Record, error) {
	var records []alert.Record

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(alertPrefix + seekSuffix)); it.ValidForPrefix([]byte(alertPrefix)); it.Next() {
			if uint64(len(records)) >= limit {
				break
			}

			var rec alert.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

type badgerAgents struct {
	*badgerStore
}

func agentKey(id string) []byte {
	return []byte(agentPrefix + id)
}

func (b *badgerAgents) Create(_ context.Context, a agent.Agent) error {
	if a.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(agentKey(a.ID))
	if err != nil {
		return err
	}
	if ok {
		return pkgerrors.ErrEntityExists
	}

	return b.set(agentKey(a.ID), a)
}

func (b *badgerAgents) Get(_ context.Context, id string) (agent.Agent, error) {
	if id == "" {
		return agent.Agent{}, pkgerrors.ErrEmptyKey
	}

	var a agent.Agent
	if err := b.get(agentKey(id), &a); err != nil {
		return agent.Agent{}, err
	}

	return a, nil
}

func (b *badgerAgents) Update(_ context.Context, a agent.Agent) error {
	if a.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(agentKey(a.ID))
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.ErrNotFound
	}

	return b.set(agentKey(a.ID), a)
}

func (b *badgerAgents) List(_ context.Context, offset, limit uint64) ([]agent.Agent, uint64, error) {
	var agents []agent.Agent
	var total uint64

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var idx uint64
		for it.Seek([]byte(agentPrefix)); it.ValidForPrefix([]byte(agentPrefix)); it.Next() {
			total++
			if idx < offset || uint64(len(agents)) >= limit {
				idx++

				continue
			}
			idx++

			var a agent.Agent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			agents = append(agents, a)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return agents, total, nil
}

type badgerHoneypots struct {
	*badgerStore
}

func honeypotKey(id string) []byte {
	return []byte(honeypotPrefix + id)
}

func (b *badgerHoneypots) Register(_ context.Context, e honeypot.Entry) error {
	if e.DecoyID == "" {
		return pkgerrors.ErrEmptyKey
	}

	b.Lock()
	defer b.Unlock()

	ok, err := b.exists(honeypotKey(e.DecoyID))
	if err != nil {
		return err
	}
	if ok {
		return pkgerrors.ErrEntityExists
	}

	return b.set(honeypotKey(e.DecoyID), e)
}

func (b *badgerHoneypots) Trigger(_ context.Context, decoyID string) error {
	if decoyID == "" {
		return pkgerrors.ErrEmptyKey
	}

	b.Lock()
	defer b.Unlock()

	var e honeypot.Entry
	if err := b.get(honeypotKey(decoyID), &e); err != nil {
		return err
	}
	if e.Triggered {
		return nil
	}
	e.Triggered = true
	e.TriggeredAt = time.Now().UTC()

	return b.set(honeypotKey(decoyID), e)
}

func (b *badgerHoneypots) List(context.Context) ([]honeypot.Entry, error) {
	var entries []honeypot.Entry

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(honeypotPrefix)); it.ValidForPrefix([]byte(honeypotPrefix)); it.Next() {
			var e honeypot.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
