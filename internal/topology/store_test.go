package topology

import (
	"path/filepath"
	"testing"

	"github.com/localnerve/traits/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewMemory(t.Name(), "main")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stations(t *testing.T, s *Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, s.PutStation(key, `""`))
	}
}

func TestTrainNodes(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutTrain("T1", 100, "OPERATIONAL"))

	exists, err := s.HasNode(KindTrain, "T1")
	require.NoError(t, err)
	assert.True(t, exists)

	capacity, status, found, err := s.TrainAttrs("T1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 100, capacity)
	assert.Equal(t, "OPERATIONAL", status)

	newStatus := "DELAYED"
	require.NoError(t, s.UpdateTrain("T1", nil, &newStatus))
	capacity, status, _, err = s.TrainAttrs("T1")
	require.NoError(t, err)
	assert.Equal(t, 100, capacity, "capacity is kept when only status changes")
	assert.Equal(t, "DELAYED", status)

	require.NoError(t, s.RemoveNode(KindTrain, "T1"))
	_, _, found, err = s.TrainAttrs("T1")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing again is not an error
	require.NoError(t, s.RemoveNode(KindTrain, "T1"))
}

func TestConnections(t *testing.T) {
	s := newTestStore(t)
	stations(t, s, "A", "B", "C")

	require.NoError(t, s.Connect("A", "C", 15))
	require.NoError(t, s.Connect("A", "B", 10))

	connected, err := s.Connected("A", "B")
	require.NoError(t, err)
	assert.True(t, connected)

	connected, err = s.Connected("B", "A")
	require.NoError(t, err)
	assert.False(t, connected, "connections are directed")

	hops, err := s.Neighbors("A")
	require.NoError(t, err)
	assert.Equal(t, []Hop{{To: "B", TravelTime: 10}, {To: "C", TravelTime: 15}}, hops)

	hops, err = s.Neighbors("B")
	require.NoError(t, err)
	assert.Empty(t, hops)

	require.NoError(t, s.Disconnect("A", "B"))
	connected, err = s.Connected("A", "B")
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestRemoveStationRemovesConnections(t *testing.T) {
	s := newTestStore(t)
	stations(t, s, "A", "B")
	require.NoError(t, s.Connect("A", "B", 10))

	require.NoError(t, s.RemoveNode(KindStation, "B"))

	hops, err := s.Neighbors("A")
	require.NoError(t, err)
	assert.Empty(t, hops)
}

func TestSchedules(t *testing.T) {
	s := newTestStore(t)
	stations(t, s, "A", "B", "C")
	require.NoError(t, s.PutTrain("T1", 10, "OPERATIONAL"))
	require.NoError(t, s.PutTrain("t1", 10, "OPERATIONAL"))

	all, err := s.Schedules()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)

	second := Schedule{
		ID: "T1-0900-20260201-20260228", TrainID: "T1", StartTime: "09:00",
		ValidFrom: "2026-02-01", ValidUntil: "2026-02-28",
		Stops: []Stop{{Station: "C", WaitTime: 0}, {Station: "A", WaitTime: 3}},
	}
	first := Schedule{
		ID: "T1-0830-20260101-20260131", TrainID: "T1", StartTime: "08:30",
		ValidFrom: "2026-01-01", ValidUntil: "2026-01-31",
		Stops: []Stop{{Station: "A", WaitTime: 0}, {Station: "B", WaitTime: 5}, {Station: "C", WaitTime: 2}},
	}
	other := Schedule{
		ID: "t1-0700-20260101-20260131", TrainID: "t1", StartTime: "07:00",
		ValidFrom: "2026-01-01", ValidUntil: "2026-01-31",
		Stops: []Stop{{Station: "A"}, {Station: "B"}},
	}
	require.NoError(t, s.PutSchedule(second))
	require.NoError(t, s.PutSchedule(first))
	require.NoError(t, s.PutSchedule(other))

	got, err := s.Schedule(first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, *got)

	missing, err := s.Schedule("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err = s.Schedules()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, other.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := s.SchedulesForTrain("T1")
	require.NoError(t, err)
	require.Len(t, mine, 2, "train lookup is case sensitive")
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, second.ID, mine[1].ID)

	require.NoError(t, s.RemoveSchedulesForTrain("T1"))
	mine, err = s.SchedulesForTrain("T1")
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err = s.Schedules()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, other.ID, all[0].ID)
}

func TestSchedulesForTrainWithoutIndex(t *testing.T) {
	s := newTestStore(t)

	scheds, err := s.SchedulesForTrain("T1")
	require.NoError(t, err)
	assert.Empty(t, scheds)
	require.NoError(t, s.RemoveSchedulesForTrain("T1"))
}

func TestBookings(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutTrain("T1", 10, "OPERATIONAL"))

	booking := Booking{PurchaseID: 7, UserEmail: "a@b.com", TrainID: "T1", Time: "2026-05-01T08:30:00Z", ReservedSeat: true}
	require.NoError(t, s.PutBooking(booking))

	exists, err := s.HasNode(KindUser, "a@b.com")
	require.NoError(t, err)
	assert.True(t, exists, "passenger node is created on first booking")

	booked, err := s.HasBooking(7)
	require.NoError(t, err)
	assert.True(t, booked)

	// A second booking reuses the passenger node
	booking.PurchaseID = 8
	require.NoError(t, s.PutBooking(booking))
	assert.Equal(t, uint64(1), s.Manager().NodeCount(KindUser))

	require.NoError(t, s.RemoveBooking(7))
	booked, err = s.HasBooking(7)
	require.NoError(t, err)
	assert.False(t, booked)

	// Removing the train drops its bookings
	require.NoError(t, s.RemoveNode(KindTrain, "T1"))
	booked, err = s.HasBooking(8)
	require.NoError(t, err)
	assert.False(t, booked)
}

func TestBookingRequiresTrain(t *testing.T) {
	s := newTestStore(t)

	err := s.PutBooking(Booking{PurchaseID: 1, UserEmail: "a@b.com", TrainID: "missing", Time: "2026-05-01T08:30:00Z"})
	assert.Error(t, err)

	booked, err := s.HasBooking(1)
	require.NoError(t, err)
	assert.False(t, booked)
}

func TestOpenDiskPersists(t *testing.T) {
	cfg := &config.Config{
		GraphStorage:   "disk",
		GraphPath:      filepath.Join(t.TempDir(), "graph"),
		GraphPartition: "main",
	}

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Ping())
	require.NoError(t, s.PutStation("A", `""`))
	require.NoError(t, s.PutStation("B", `""`))
	require.NoError(t, s.Connect("A", "B", 12))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	hops, err := s.Neighbors("A")
	require.NoError(t, err)
	assert.Equal(t, []Hop{{To: "B", TravelTime: 12}}, hops)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(&config.Config{GraphStorage: "memory", GraphPath: "mem", GraphPartition: "main"})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping())
}

func TestPingUnreadablePartition(t *testing.T) {
	s := NewMemory(t.Name(), "not-alphanumeric")
	defer s.Close()
	assert.Error(t, s.Ping())
}

func TestConnectionKeysWithSeparator(t *testing.T) {
	s := newTestStore(t)
	stations(t, s, "a->b", "c", "a", "b->c")

	require.NoError(t, s.Connect("a->b", "c", 10))

	connected, err := s.Connected("a", "b->c")
	require.NoError(t, err)
	assert.False(t, connected)

	require.NoError(t, s.Connect("a", "b->c", 5))

	hops, err := s.Neighbors("a->b")
	require.NoError(t, err)
	assert.Equal(t, []Hop{{To: "c", TravelTime: 10}}, hops)

	hops, err = s.Neighbors("a")
	require.NoError(t, err)
	assert.Equal(t, []Hop{{To: "b->c", TravelTime: 5}}, hops)

	require.NoError(t, s.Disconnect("a", "b->c"))
	connected, err = s.Connected("a->b", "c")
	require.NoError(t, err)
	assert.True(t, connected, "disconnecting one pair leaves the other")
}

func TestAttrHelpers(t *testing.T) {
	key, ok := nodeKeyFromSource([]string{"n:Schedule:T1-0830-20260101-20260131"})
	assert.True(t, ok)
	assert.Equal(t, "T1-0830-20260101-20260131", key)

	_, ok = nodeKeyFromSource([]string{"e:Schedule:x"})
	assert.False(t, ok)
	_, ok = nodeKeyFromSource(nil)
	assert.False(t, ok)

	assert.Equal(t, 5, intAttr(5))
	assert.Equal(t, 5, intAttr(int64(5)))
	assert.Equal(t, 5, intAttr(float64(5)))
	assert.Equal(t, 5, intAttr("5"))
	assert.Equal(t, 0, intAttr(nil))

	assert.Equal(t, "", stringAttr(nil))
	assert.Equal(t, "x", stringAttr("x"))
	assert.Equal(t, "3", stringAttr(3))
}
