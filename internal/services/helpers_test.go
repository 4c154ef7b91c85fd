package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testTraits returns a coordinator over an in-memory SQLite ledger and an in-memory graph.
// The ledger is one database, so the app and admin pools are the same handle.
func testTraits(t *testing.T) (*Traits, *gorm.DB, *topology.Store) {
	return testTraitsWith(t, 0, nil)
}

// testTraitsWith allows a hop bound and a wrapper around the graph store
func testTraitsWith(t *testing.T, maxHops int, wrap func(TopologyStore) TopologyStore) (*Traits, *gorm.DB, *topology.Store) {
	t.Helper()

	db, err := database.Connect(&config.Config{
		DBType:        "sqlite-purego",
		DBAppDatabase: ":memory:",
		DBLogLevel:    "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	graph := topology.NewMemory(t.Name(), "main")
	t.Cleanup(func() { _ = graph.Close() })

	var store TopologyStore = graph
	if wrap != nil {
		store = wrap(graph)
	}

	return New(db, db, store, maxHops), db, graph
}

// faultyGraph fails selected graph writes. before runs ahead of each injected failure.
type faultyGraph struct {
	TopologyStore
	failPutTrain   bool
	failPutStation bool
	failPutBooking bool
	failRemoveNode bool
	before         func()
}

var errGraphDown = errors.New("graph storage unavailable")

func (f *faultyGraph) fail() error {
	if f.before != nil {
		f.before()
	}
	return errGraphDown
}

func (f *faultyGraph) PutTrain(key string, capacity int, status string) error {
	if f.failPutTrain {
		return f.fail()
	}
	return f.TopologyStore.PutTrain(key, capacity, status)
}

func (f *faultyGraph) PutStation(key, details string) error {
	if f.failPutStation {
		return f.fail()
	}
	return f.TopologyStore.PutStation(key, details)
}

func (f *faultyGraph) PutBooking(b topology.Booking) error {
	if f.failPutBooking {
		return f.fail()
	}
	return f.TopologyStore.PutBooking(b)
}

func (f *faultyGraph) RemoveNode(kind, key string) error {
	if f.failRemoveNode {
		return f.fail()
	}
	return f.TopologyStore.RemoveNode(kind, key)
}

func mustAddTrain(t *testing.T, tr *Traits, key string, capacity int) {
	t.Helper()
	_, err := tr.AddTrain(context.Background(), key, capacity, types.Operational)
	require.NoError(t, err)
}

func mustAddStations(t *testing.T, tr *Traits, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, tr.AddTrainStation(context.Background(), key, nil))
	}
}

func mustConnect(t *testing.T, tr *Traits, start, end string, minutes int) {
	t.Helper()
	require.NoError(t, tr.ConnectTrainStations(context.Background(), start, end, minutes))
}

func mustAddUser(t *testing.T, tr *Traits, email string) {
	t.Helper()
	require.NoError(t, tr.AddUser(context.Background(), email, map[string]string{"name": email}))
}

func departure(hour int) time.Time {
	return time.Date(2026, 5, 1, hour, 30, 0, 0, time.UTC)
}
