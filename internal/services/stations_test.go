package services

import (
	"context"
	"testing"

	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTrainStation(t *testing.T) {
	tr, db, graph := testTraits(t)
	ctx := context.Background()

	require.NoError(t, tr.AddTrainStation(ctx, "Central", map[string]string{"city": "Vienna"}))

	var station models.Station
	require.NoError(t, db.First(&station, "id = ?", "Central").Error)
	assert.Equal(t, map[string]interface{}{"city": "Vienna"}, station.Details.Decode())

	exists, err := graph.HasNode(topology.KindStation, "Central")
	require.NoError(t, err)
	assert.True(t, exists)

	err = tr.AddTrainStation(ctx, "Central", nil)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "Station already exists", err.(*types.CustomError).Message)

	err = tr.AddTrainStation(ctx, "", nil)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAddTrainStationCompensation(t *testing.T) {
	fault := &faultyGraph{failPutStation: true}
	tr, db, _ := testTraitsWith(t, 0, func(s TopologyStore) TopologyStore {
		fault.TopologyStore = s
		return fault
	})

	err := tr.AddTrainStation(context.Background(), "Central", nil)
	assert.ErrorIs(t, err, types.ErrConsistency)

	var count int64
	require.NoError(t, db.Model(&models.Station{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConnectTrainStations(t *testing.T) {
	tr, _, graph := testTraits(t)
	ctx := context.Background()
	mustAddStations(t, tr, "A", "B")

	require.NoError(t, tr.ConnectTrainStations(ctx, "A", "B", MaxTravelTime))

	hops, err := graph.Neighbors("A")
	require.NoError(t, err)
	assert.Equal(t, []topology.Hop{{To: "B", TravelTime: MaxTravelTime}}, hops)

	err = tr.ConnectTrainStations(ctx, "A", "B", 5)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "Stations are already connected", err.(*types.CustomError).Message)

	// The reverse direction is a separate connection
	require.NoError(t, tr.ConnectTrainStations(ctx, "B", "A", 1))
}

func TestConnectTrainStationsValidation(t *testing.T) {
	tr, _, _ := testTraits(t)
	ctx := context.Background()
	mustAddStations(t, tr, "A", "B")

	for _, minutes := range []int{0, -1, MaxTravelTime + 1} {
		err := tr.ConnectTrainStations(ctx, "A", "B", minutes)
		assert.ErrorIs(t, err, types.ErrValidation, "%d minutes", minutes)
		assert.Equal(t, "Invalid travel time", err.(*types.CustomError).Message)
	}

	err := tr.ConnectTrainStations(ctx, "A", "A", 5)
	assert.ErrorIs(t, err, types.ErrValidation)

	err = tr.ConnectTrainStations(ctx, "A", "Z", 5)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, "Station Z does not exist", err.(*types.CustomError).Message)

	err = tr.ConnectTrainStations(ctx, "Y", "A", 5)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestConnectTrainStationsKeysWithSeparator(t *testing.T) {
	tr, _, graph := testTraits(t)
	ctx := context.Background()
	mustAddStations(t, tr, "a->b", "c", "a", "b->c")
	mustConnect(t, tr, "a->b", "c", 10)

	require.NoError(t, tr.ConnectTrainStations(ctx, "a", "b->c", 5))

	hops, err := graph.Neighbors("a")
	require.NoError(t, err)
	assert.Equal(t, []topology.Hop{{To: "b->c", TravelTime: 5}}, hops)
}
