package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/pkg/storage"
	"github.com/fleetguard/fleetguard/round"
)

// backends runs the repository contract against every configured store.
func backends(t *testing.T) map[string]*storage.Repositories {
	t.Helper()

	memory, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)

	sqlite, err := storage.NewRepositories(storage.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	badger, err := storage.NewRepositories(storage.Config{
		Type:       "badger",
		BadgerPath: filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)

	repos := map[string]*storage.Repositories{
		"memory": memory,
		"sqlite": sqlite,
		"badger": badger,
	}

	t.Cleanup(func() {
		for _, r := range repos {
			if r.Closer != nil {
				r.Closer.Close()
			}
		}
	})

	return repos
}

func testRound(id uint64) round.Round {
	return round.New(id, []string{"agent-0", "agent-1"}, time.Now().UTC(), time.Minute)
}

func TestUnknownStorageType(t *testing.T) {
	t.Parallel()

	_, err := storage.NewRepositories(storage.Config{Type: "etcd"})
	assert.Error(t, err)
}

func TestRoundRepository(t *testing.T) {
	t.Parallel()

	for name, repos := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			last, err := repos.Rounds.LastID(ctx)
			require.NoError(t, err)
			assert.Zero(t, last)

			_, err = repos.Rounds.Get(ctx, 1)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			r := testRound(1)
			require.NoError(t, repos.Rounds.Create(ctx, r))

			r.State = round.Closed
			r.ClosedAt = time.Now().UTC()
			r.Received["agent-0"] = model.Update{
				AgentID:      "agent-0",
				RoundID:      1,
				DeltaWeights: make([]float64, feature.Arity()),
				NumSamples:   10,
			}
			require.NoError(t, repos.Rounds.Update(ctx, r))

			got, err := repos.Rounds.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, round.Closed, got.State)
			assert.Len(t, got.Received, 1)
			assert.Equal(t, []string{"agent-0", "agent-1"}, got.Expected)

			require.NoError(t, repos.Rounds.Create(ctx, testRound(2)))
			require.NoError(t, repos.Rounds.Create(ctx, testRound(3)))

			last, err = repos.Rounds.LastID(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), last)

			summaries, total, err := repos.Rounds.List(ctx, 0, 2)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), total)
			require.Len(t, summaries, 2)
			// Newest first.
			assert.Equal(t, uint64(3), summaries[0].ID)
			assert.Equal(t, uint64(2), summaries[1].ID)

			err = repos.Rounds.Update(ctx, testRound(99))
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
		})
	}
}

func TestSnapshotRepository(t *testing.T) {
	t.Parallel()

	for name, repos := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repos.Snapshots.Latest(ctx)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			zero := model.Zero(1)
			require.NoError(t, repos.Snapshots.Save(ctx, zero))

			next := zero.Apply(1, make([]float64, feature.Arity()), 0.5)
			require.NoError(t, repos.Snapshots.Save(ctx, next))

			latest, err := repos.Snapshots.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), latest.Version)
			assert.InDelta(t, 0.5, latest.Bias, 1e-9)

			old, err := repos.Snapshots.Get(ctx, 0)
			require.NoError(t, err)
			assert.Zero(t, old.Version)
			assert.Len(t, old.Weights, feature.Arity())

			_, err = repos.Snapshots.Get(ctx, 42)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
		})
	}
}

func TestAlertRepository(t *testing.T) {
	t.Parallel()

	for name, repos := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := range 5 {
				require.NoError(t, repos.Alerts.Append(ctx, alert.Record{
					ID:          string(rune('a' + i)),
					Category:    alert.CategoryBehavioral,
					AgentID:     "agent-0",
					Timestamp:   time.Now().UTC().Add(time.Duration(i) * time.Second),
					ThreatScore: float64(i) / 10,
					Severity:    alert.SeverityWarning,
				}))
			}

			recs, err := repos.Alerts.List(ctx, 3)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			// Newest first.
			assert.InDelta(t, 0.4, recs[0].ThreatScore, 1e-9)
			assert.InDelta(t, 0.3, recs[1].ThreatScore, 1e-9)

			recs, err = repos.Alerts.List(ctx, 100)
			require.NoError(t, err)
			assert.Len(t, recs, 5)
		})
	}
}

func TestAgentRepository(t *testing.T) {
	t.Parallel()

	for name, repos := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a := agent.Agent{
				ID:            "agent-0",
				Name:          "crimson-falcon",
				Organization:  "acme",
				SchemaVersion: 1,
				RegisteredAt:  time.Now().UTC(),
			}
			require.NoError(t, repos.Agents.Create(ctx, a))

			err := repos.Agents.Create(ctx, a)
			assert.Error(t, err)

			a.MissedRounds = 2
			a.AliveHistory = []time.Time{time.Now().UTC()}
			require.NoError(t, repos.Agents.Update(ctx, a))

			got, err := repos.Agents.Get(ctx, "agent-0")
			require.NoError(t, err)
			assert.Equal(t, 2, got.MissedRounds)
			assert.Len(t, got.AliveHistory, 1)

			_, err = repos.Agents.Get(ctx, "missing")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			agents, total, err := repos.Agents.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), total)
			assert.Len(t, agents, 1)
		})
	}
}

func TestHoneypotRepository(t *testing.T) {
	t.Parallel()

	for name, repos := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			e := honeypot.Entry{
				DecoyID:   "decoy-0",
				AgentID:   "agent-0",
				Path:      "/tmp/passwords.txt",
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, repos.Honeypots.Register(ctx, e))

			require.NoError(t, repos.Honeypots.Trigger(ctx, "decoy-0"))

			entries, err := repos.Honeypots.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, entries[0].Triggered)
			firstTrigger := entries[0].TriggeredAt

			// Triggering again is a no-op; the first timestamp stands.
			require.NoError(t, repos.Honeypots.Trigger(ctx, "decoy-0"))
			entries, err = repos.Honeypots.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, firstTrigger, entries[0].TriggeredAt)

			err = repos.Honeypots.Trigger(ctx, "missing")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
		})
	}
}
