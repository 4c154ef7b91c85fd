package services

import (
	"context"
	"sync"
	"testing"

	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scheduleNetwork is a line A -> B -> C with train T1
func scheduleNetwork(t *testing.T) *Traits {
	t.Helper()
	tr, _, _ := testTraits(t)
	mustAddStations(t, tr, "A", "B", "C")
	mustConnect(t, tr, "A", "B", 10)
	mustConnect(t, tr, "B", "C", 20)
	mustAddTrain(t, tr, "T1", 50)
	return tr
}

func january(train string) ScheduleRequest {
	return ScheduleRequest{
		TrainKey: train,
		Hour:     8,
		Minute:   30,
		Stops: []ScheduleStop{
			{Station: "A", WaitTime: 0},
			{Station: "B", WaitTime: 5},
			{Station: "C", WaitTime: 2},
		},
		ValidFrom:  ScheduleDate{Day: 1, Month: 1, Year: 2026},
		ValidUntil: ScheduleDate{Day: 31, Month: 1, Year: 2026},
	}
}

func TestScheduleID(t *testing.T) {
	id := ScheduleID("T1", 8, 5, ScheduleDate{1, 2, 2026}, ScheduleDate{28, 2, 2026})
	assert.Equal(t, "T1-0805-20260201-20260228", id)
}

func TestParseScheduleDate(t *testing.T) {
	d, err := ParseScheduleDate("2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, ScheduleDate{Day: 9, Month: 3, Year: 2026}, d)
	assert.Equal(t, "2026-03-09", d.String())

	_, err = ParseScheduleDate("March 9th")
	assert.Error(t, err)
}

func TestAddSchedule(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()

	id, err := tr.AddSchedule(ctx, january("T1"))
	require.NoError(t, err)
	assert.Equal(t, "T1-0830-20260101-20260131", id)

	scheds, err := tr.GetTrainSchedules(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, scheds, 1)
	assert.Equal(t, topology.Schedule{
		ID:         id,
		TrainID:    "T1",
		StartTime:  "08:30",
		ValidFrom:  "2026-01-01",
		ValidUntil: "2026-01-31",
		Stops: []topology.Stop{
			{Station: "A", WaitTime: 0},
			{Station: "B", WaitTime: 5},
			{Station: "C", WaitTime: 2},
		},
	}, scheds[0])
}

func TestAddScheduleUsesLastTrain(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()
	mustAddTrain(t, tr, "T2", 50)

	id, err := tr.AddSchedule(ctx, january(""))
	require.NoError(t, err)
	assert.Equal(t, "T2-0830-20260101-20260131", id)
}

func TestAddScheduleWithoutTrain(t *testing.T) {
	tr, _, _ := testTraits(t)

	_, err := tr.AddSchedule(context.Background(), january(""))
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, "Train key cannot be None", err.(*types.CustomError).Message)
}

func TestAddScheduleValidation(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ScheduleRequest)
		kind    error
		message string
	}{
		{"one stop", func(r *ScheduleRequest) { r.Stops = r.Stops[:1] }, types.ErrValidation, "Schedule must have at least two stops"},
		{"hour", func(r *ScheduleRequest) { r.Hour = 24 }, types.ErrValidation, "Invalid start time"},
		{"minute", func(r *ScheduleRequest) { r.Minute = -1 }, types.ErrValidation, "Invalid start time"},
		{"start date", func(r *ScheduleRequest) { r.ValidFrom.Month = 13 }, types.ErrValidation, "Invalid start date"},
		{"end date", func(r *ScheduleRequest) { r.ValidUntil.Day = 0 }, types.ErrValidation, "Invalid end date"},
		{"reversed dates", func(r *ScheduleRequest) {
			r.ValidFrom, r.ValidUntil = r.ValidUntil, r.ValidFrom
		}, types.ErrValidation, "End date must be after start date"},
		{"wait time", func(r *ScheduleRequest) { r.Stops[1].WaitTime = -3 }, types.ErrValidation, "Invalid wait time at station B"},
		{"unknown train", func(r *ScheduleRequest) { r.TrainKey = "T9" }, types.ErrNotFound, "Train does not exist"},
		{"not connected", func(r *ScheduleRequest) {
			r.Stops = []ScheduleStop{{Station: "C"}, {Station: "A"}}
		}, types.ErrValidation, "Stations C and A are not connected"},
		{"validation order", func(r *ScheduleRequest) {
			r.Hour = 99
			r.ValidFrom.Month = 13
		}, types.ErrValidation, "Invalid start time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := january("T1")
			req.Stops = append([]ScheduleStop(nil), req.Stops...)
			tt.mutate(&req)

			_, err := tr.AddSchedule(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.(*types.CustomError).Message)
		})
	}

	scheds, err := tr.GetAllSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheds)
}

func TestAddScheduleSingleDay(t *testing.T) {
	tr := scheduleNetwork(t)

	req := january("T1")
	req.ValidUntil = req.ValidFrom
	_, err := tr.AddSchedule(context.Background(), req)
	assert.NoError(t, err)
}

func TestAddScheduleConflicts(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()

	first, err := tr.AddSchedule(ctx, january("T1"))
	require.NoError(t, err)

	_, err = tr.AddSchedule(ctx, january("T1"))
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "Schedule already exists", err.(*types.CustomError).Message)

	overlapping := january("T1")
	overlapping.Hour = 17
	overlapping.ValidFrom = ScheduleDate{Day: 31, Month: 1, Year: 2026}
	overlapping.ValidUntil = ScheduleDate{Day: 14, Month: 2, Year: 2026}
	_, err = tr.AddSchedule(ctx, overlapping)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "Schedule is overlapping with schedule "+first, err.(*types.CustomError).Message)

	february := january("T1")
	february.ValidFrom = ScheduleDate{Day: 1, Month: 2, Year: 2026}
	february.ValidUntil = ScheduleDate{Day: 28, Month: 2, Year: 2026}
	_, err = tr.AddSchedule(ctx, february)
	require.NoError(t, err)

	// Windows of different trains never conflict
	mustAddTrain(t, tr, "T2", 50)
	_, err = tr.AddSchedule(ctx, january("T2"))
	require.NoError(t, err)

	all, err := tr.GetAllSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "T1-0830-20260101-20260131", all[0].ID)
	assert.Equal(t, "T1-0830-20260201-20260228", all[1].ID)
	assert.Equal(t, "T2-0830-20260101-20260131", all[2].ID)
}

func TestGetTrainSchedules(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()

	scheds, err := tr.GetTrainSchedules(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, scheds)

	_, err = tr.GetTrainSchedules(ctx, "T9")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddScheduleConcurrentOverlap(t *testing.T) {
	tr := scheduleNetwork(t)
	ctx := context.Background()

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := january("T1")
			req.Hour = i
			_, errs[i] = tr.AddSchedule(ctx, req)
		}(i)
	}
	wg.Wait()

	var added int
	for _, err := range errs {
		if err == nil {
			added++
			continue
		}
		assert.ErrorIs(t, err, types.ErrConflict)
	}
	assert.Equal(t, 1, added)

	scheds, err := tr.GetTrainSchedules(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, scheds, 1)
}

func TestAddScheduleStopKeysWithSeparator(t *testing.T) {
	tr, _, _ := testTraits(t)
	ctx := context.Background()
	mustAddStations(t, tr, "a->b", "c", "a", "b->c")
	mustConnect(t, tr, "a->b", "c", 10)
	mustAddTrain(t, tr, "T1", 50)

	req := january("T1")
	req.Stops = []ScheduleStop{{Station: "a"}, {Station: "b->c"}}
	_, err := tr.AddSchedule(ctx, req)
	assert.ErrorIs(t, err, types.ErrValidation)
}
