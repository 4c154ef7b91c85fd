package services

import (
	"sync"

	"github.com/localnerve/traits/internal/topology"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultMaxHops bounds journey length when no limit is configured
const DefaultMaxHops = 8

// TopologyStore is the graph side of the coordinator. *topology.Store implements it.
type TopologyStore interface {
	Ping() error
	HasNode(kind, key string) (bool, error)
	RemoveNode(kind, key string) error

	PutTrain(key string, capacity int, status string) error
	UpdateTrain(key string, capacity *int, status *string) error
	TrainAttrs(key string) (capacity int, status string, found bool, err error)

	PutStation(key, details string) error
	Connect(start, end string, minutes int) error
	Disconnect(start, end string) error
	Connected(start, end string) (bool, error)
	Neighbors(station string) ([]topology.Hop, error)

	PutSchedule(sched topology.Schedule) error
	Schedule(id string) (*topology.Schedule, error)
	Schedules() ([]topology.Schedule, error)
	SchedulesForTrain(trainID string) ([]topology.Schedule, error)
	RemoveSchedulesForTrain(trainID string) error

	PutBooking(b topology.Booking) error
	RemoveBooking(purchaseID uint64) error
}

// Traits coordinates the relational ledger and the topology graph.
// AppDB serves reads; AdminDB carries every ledger write.
type Traits struct {
	AppDB   *gorm.DB
	AdminDB *gorm.DB
	Graph   TopologyStore
	MaxHops int

	mu           sync.Mutex
	lastTrainKey string

	// train key -> *sync.Mutex guarding the schedule overlap check
	scheduleLocks sync.Map
}

// New creates a coordinator. maxHops <= 0 selects DefaultMaxHops.
func New(appDB, adminDB *gorm.DB, graph TopologyStore, maxHops int) *Traits {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Traits{
		AppDB:   appDB,
		AdminDB: adminDB,
		Graph:   graph,
		MaxHops: maxHops,
	}
}

// LastTrainKey returns the key of the most recently created train, or ""
func (t *Traits) LastTrainKey() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTrainKey
}

func (t *Traits) setLastTrainKey(key string) {
	t.mu.Lock()
	t.lastTrainKey = key
	t.mu.Unlock()
}

// lockSchedules serializes schedule writes for one train and returns the unlock
func (t *Traits) lockSchedules(trainKey string) func() {
	m, _ := t.scheduleLocks.LoadOrStore(trainKey, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// quiet returns a session that does not log expected misses
func quiet(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}
