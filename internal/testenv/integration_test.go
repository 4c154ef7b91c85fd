package testenv_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/testenv"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWithMariaDB runs the coordinator against a MariaDB ledger in a container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	opts := testenv.OptionsFromEnv()
	if opts.DBImage == "" {
		t.Skip("DB_IMAGE not set")
	}
	opts.AuthzImage = ""

	ctx := context.Background()
	env, err := testenv.Start(ctx, opts, t.Logf)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := env.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate environment: %v", err)
		}
	})

	cfg := env.Config()
	appDB, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(appDB) })
	userDB, err := database.ConnectUser(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(userDB) })

	graph := topology.NewMemory(t.Name(), cfg.GraphPartition)
	t.Cleanup(func() { _ = graph.Close() })

	tr := services.New(appDB, userDB, graph, cfg.SearchMaxHops)

	require.NoError(t, tr.AddUser(ctx, "a@x.com", map[string]string{"name": "A"}))
	assert.ErrorIs(t, tr.AddUser(ctx, "a@x.com", nil), types.ErrConflict)

	_, err = tr.AddTrain(ctx, "T1", 3, types.Operational)
	require.NoError(t, err)
	require.NoError(t, tr.AddTrainStation(ctx, "A", nil))
	require.NoError(t, tr.AddTrainStation(ctx, "B", nil))
	require.NoError(t, tr.ConnectTrainStations(ctx, "A", "B", 12))

	departure := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	conn := &services.Connection{TrainID: "T1", DepartureTime: departure}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		refused  int
		failures []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.BuyTicket(ctx, "a@x.com", conn, true)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, types.ErrConflict):
				refused++
			default:
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 3, sold)
	assert.Equal(t, 7, refused)

	seats, err := tr.GetSeatAvailability(ctx, "T1", departure)
	require.NoError(t, err)
	assert.Equal(t, 0, seats.Free)

	history, err := tr.GetPurchaseHistory(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	require.NoError(t, tr.DeleteTrain(ctx, "T1"))
	history, err = tr.GetPurchaseHistory(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, history)

	result := services.HealthCheck(cfg, appDB, graph)
	assert.Equal(t, "healthy", result.Status)
}
