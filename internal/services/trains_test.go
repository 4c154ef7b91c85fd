package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTrain(t *testing.T) {
	tr, db, graph := testTraits(t)
	ctx := context.Background()

	key, err := tr.AddTrain(ctx, "T1", 120, types.Delayed)
	require.NoError(t, err)
	assert.Equal(t, "T1", key)
	assert.Equal(t, "T1", tr.LastTrainKey())

	var train models.Train
	require.NoError(t, db.First(&train, "id = ?", "T1").Error)
	assert.Equal(t, 120, train.Capacity)
	assert.Equal(t, types.Delayed, train.Status)
	assert.Zero(t, train.ReservedSeats)

	capacity, status, found, err := graph.TrainAttrs("T1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 120, capacity)
	assert.Equal(t, "DELAYED", status)

	_, err = tr.AddTrain(ctx, "T1", 10, types.Operational)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "T1", tr.LastTrainKey())
}

func TestAddTrainGeneratesKey(t *testing.T) {
	tr, _, _ := testTraits(t)

	key, err := tr.AddTrain(context.Background(), "", 10, types.Operational)
	require.NoError(t, err)
	_, err = uuid.Parse(key)
	assert.NoError(t, err)
	assert.Equal(t, key, tr.LastTrainKey())
}

func TestAddTrainValidation(t *testing.T) {
	tr, _, _ := testTraits(t)
	ctx := context.Background()

	for _, capacity := range []int{0, -5} {
		_, err := tr.AddTrain(ctx, "T1", capacity, types.Operational)
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Equal(t, "Invalid train capacity", err.(*types.CustomError).Message)
	}

	_, err := tr.AddTrain(ctx, "T1", 10, types.StatusUnknown)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, "Invalid train status", err.(*types.CustomError).Message)

	assert.Empty(t, tr.LastTrainKey())
}

func TestAddTrainConflictOnGraphDrift(t *testing.T) {
	tr, db, graph := testTraits(t)

	require.NoError(t, graph.PutTrain("T1", 5, "OPERATIONAL"))

	_, err := tr.AddTrain(context.Background(), "T1", 10, types.Operational)
	assert.ErrorIs(t, err, types.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.Train{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddTrainCompensation(t *testing.T) {
	fault := &faultyGraph{failPutTrain: true}
	tr, db, _ := testTraitsWith(t, 0, func(s TopologyStore) TopologyStore {
		fault.TopologyStore = s
		return fault
	})

	_, err := tr.AddTrain(context.Background(), "T1", 10, types.Operational)
	var ce *types.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Degraded())
	assert.Equal(t, "AddTrain", ce.Op)

	var count int64
	require.NoError(t, db.Model(&models.Train{}).Count(&count).Error)
	assert.Zero(t, count, "the ledger row is removed again")
	assert.Empty(t, tr.LastTrainKey())
}

func TestUpdateTrainDetails(t *testing.T) {
	tr, db, graph := testTraits(t)
	ctx := context.Background()
	mustAddTrain(t, tr, "T1", 10)

	capacity := 25
	require.NoError(t, tr.UpdateTrainDetails(ctx, "T1", &capacity, nil))

	status := types.Broken
	require.NoError(t, tr.UpdateTrainDetails(ctx, "T1", nil, &status))

	var train models.Train
	require.NoError(t, db.First(&train, "id = ?", "T1").Error)
	assert.Equal(t, 25, train.Capacity)
	assert.Equal(t, types.Broken, train.Status)

	gotCapacity, gotStatus, _, err := graph.TrainAttrs("T1")
	require.NoError(t, err)
	assert.Equal(t, 25, gotCapacity)
	assert.Equal(t, "BROKEN", gotStatus)

	current, found, err := tr.GetTrainCurrentStatus(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, types.Broken, current)

	// No fields and unknown keys are no-ops
	require.NoError(t, tr.UpdateTrainDetails(ctx, "T1", nil, nil))
	require.NoError(t, tr.UpdateTrainDetails(ctx, "missing", &capacity, nil))
	exists, err := graph.HasNode(topology.KindTrain, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateTrainDetailsValidation(t *testing.T) {
	tr, _, _ := testTraits(t)
	ctx := context.Background()
	mustAddTrain(t, tr, "T1", 10)

	zero := 0
	err := tr.UpdateTrainDetails(ctx, "T1", &zero, nil)
	assert.ErrorIs(t, err, types.ErrValidation)

	bad := types.TrainStatus(42)
	err = tr.UpdateTrainDetails(ctx, "T1", nil, &bad)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestGetTrainCurrentStatusUnknown(t *testing.T) {
	tr, _, _ := testTraits(t)

	status, found, err := tr.GetTrainCurrentStatus(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, types.StatusUnknown, status)
}

func TestDeleteTrain(t *testing.T) {
	tr, db, graph := testTraits(t)
	ctx := context.Background()

	mustAddUser(t, tr, "a@b.com")
	mustAddTrain(t, tr, "T1", 10)
	mustAddTrain(t, tr, "T2", 10)
	mustAddStations(t, tr, "A", "B")
	mustConnect(t, tr, "A", "B", 10)
	_, err := tr.AddSchedule(ctx, ScheduleRequest{
		TrainKey: "T1", Hour: 8, Minute: 0,
		Stops:     []ScheduleStop{{Station: "A"}, {Station: "B"}},
		ValidFrom: ScheduleDate{1, 1, 2026}, ValidUntil: ScheduleDate{31, 1, 2026},
	})
	require.NoError(t, err)

	p1, err := tr.BuyTicket(ctx, "a@b.com", &Connection{TrainID: "T1", DepartureTime: departure(8)}, true)
	require.NoError(t, err)
	_, err = tr.BuyTicket(ctx, "a@b.com", &Connection{TrainID: "T2", DepartureTime: departure(8)}, true)
	require.NoError(t, err)

	require.NoError(t, tr.DeleteTrain(ctx, "T1"))

	var count int64
	require.NoError(t, db.Model(&models.Train{}).Where("id = ?", "T1").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Purchase{}).Where("train_id = ?", "T1").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.SeatReservation{}).Where("train_id = ?", "T1").Count(&count).Error)
	assert.Zero(t, count)

	exists, err := graph.HasNode(topology.KindTrain, "T1")
	require.NoError(t, err)
	assert.False(t, exists)
	booked, err := graph.HasBooking(p1.ID)
	require.NoError(t, err)
	assert.False(t, booked)
	scheds, err := tr.GetAllSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheds)

	// Other trains are untouched
	history, err := tr.GetPurchaseHistory(ctx, "a@b.com")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "T2", history[0].TrainID)

	// Unknown trains delete cleanly
	require.NoError(t, tr.DeleteTrain(ctx, "T1"))
}

func TestDeleteTrainCompensation(t *testing.T) {
	fault := &faultyGraph{}
	tr, db, _ := testTraitsWith(t, 0, func(s TopologyStore) TopologyStore {
		fault.TopologyStore = s
		return fault
	})
	ctx := context.Background()

	mustAddUser(t, tr, "a@b.com")
	mustAddTrain(t, tr, "T1", 10)
	_, err := tr.BuyTicket(ctx, "a@b.com", &Connection{TrainID: "T1", DepartureTime: departure(8)}, true)
	require.NoError(t, err)

	fault.failRemoveNode = true
	err = tr.DeleteTrain(ctx, "T1")
	var ce *types.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Degraded())

	var train models.Train
	require.NoError(t, db.First(&train, "id = ?", "T1").Error)
	assert.Equal(t, 1, train.ReservedSeats)

	history, err := tr.GetPurchaseHistory(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	seats, err := tr.GetSeatAvailability(ctx, "T1", departure(8))
	require.NoError(t, err)
	assert.Equal(t, 1, seats.Reserved)
}
