// store.go
//
// Transit network coordination service: ledger, topology, booking and search
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of traits.
// traits is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// traits is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with traits.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package topology holds the network graph: trains, stations, connections,
// schedules and booking relationships, stored in an embedded EliasDB graph.
package topology

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"devt.de/krotik/eliasdb/eql"
	"devt.de/krotik/eliasdb/graph"
	"devt.de/krotik/eliasdb/graph/data"
	"devt.de/krotik/eliasdb/graph/graphstorage"
	"github.com/localnerve/traits/internal/config"
)

// Node kinds
const (
	KindUser     = "User"
	KindTrain    = "Train"
	KindStation  = "Station"
	KindSchedule = "Schedule"
)

// Edge kinds and their roles
const (
	EdgeConnectedTo = "CONNECTED_TO"
	EdgeStopsAt     = "STOPS_AT"
	EdgeBooked      = "BOOKED"

	roleDeparture = "departure"
	roleArrival   = "arrival"
	roleSchedule  = "schedule"
	roleStop      = "stop"
	rolePassenger = "passenger"
	roleTrain     = "train"
)

var (
	specConnections = fmt.Sprintf("%s:%s:%s:%s", roleDeparture, EdgeConnectedTo, roleArrival, KindStation)
	specStops       = fmt.Sprintf("%s:%s:%s:%s", roleSchedule, EdgeStopsAt, roleStop, KindStation)
)

// Hop is one directed CONNECTED_TO edge leaving a station
type Hop struct {
	To         string
	TravelTime int
}

// Stop is one station of a schedule with the dwell time at that station
type Stop struct {
	Station  string `json:"station"`
	WaitTime int    `json:"waitTime"`
}

// Schedule is a stored schedule node together with its ordered stops
type Schedule struct {
	ID         string `json:"id"`
	TrainID    string `json:"trainId"`
	StartTime  string `json:"startTime"`
	ValidFrom  string `json:"validFrom"`
	ValidUntil string `json:"validUntil"`
	Stops      []Stop `json:"stops"`
}

// Booking mirrors a purchase row as a User -> Train relationship
type Booking struct {
	PurchaseID   uint64
	UserEmail    string
	TrainID      string
	Time         string
	ReservedSeat bool
}

// Store is the topology graph store
type Store struct {
	gs   graphstorage.Storage
	gm   *graph.Manager
	part string
}

// Open opens the graph storage selected by configuration
func Open(cfg *config.Config) (*Store, error) {
	if cfg.GraphStorage == "disk" {
		gs, err := graphstorage.NewDiskGraphStorage(cfg.GraphPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open graph storage at %s: %w", cfg.GraphPath, err)
		}
		log.Printf("Opened disk graph storage: %s", cfg.GraphPath)
		return newStore(gs, cfg.GraphPartition), nil
	}

	log.Printf("Using in-memory graph storage: %s", cfg.GraphPath)
	return NewMemory(cfg.GraphPath, cfg.GraphPartition), nil
}

// NewMemory creates a store backed by volatile memory storage
func NewMemory(name, partition string) *Store {
	return newStore(graphstorage.NewMemoryGraphStorage(name), partition)
}

func newStore(gs graphstorage.Storage, partition string) *Store {
	return &Store{
		gs:   gs,
		gm:   graph.NewGraphManager(gs),
		part: partition,
	}
}

// Close flushes and closes the underlying storage
func (s *Store) Close() error {
	return s.gs.Close()
}

// Ping verifies the storage answers a metadata read
func (s *Store) Ping() error {
	if s.gs.MainDB() == nil {
		return fmt.Errorf("graph storage %s is not available", s.gs.Name())
	}
	if _, err := s.gm.NodeKeyIterator(s.part, KindStation); err != nil {
		return fmt.Errorf("graph storage %s is not readable: %w", s.gs.Name(), err)
	}
	return nil
}

// Manager exposes the graph manager for tooling and tests
func (s *Store) Manager() *graph.Manager {
	return s.gm
}

// HasNode reports whether a node of the given kind exists
func (s *Store) HasNode(kind, key string) (bool, error) {
	node, err := s.gm.FetchNode(s.part, key, kind)
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s %s: %w", kind, key, err)
	}
	return node != nil, nil
}

// RemoveNode removes a node and all of its relationships. Absent nodes are ignored.
func (s *Store) RemoveNode(kind, key string) error {
	if _, err := s.gm.RemoveNode(s.part, key, kind); err != nil {
		return fmt.Errorf("failed to remove %s %s: %w", kind, key, err)
	}
	return nil
}

// PutTrain stores a train node
func (s *Store) PutTrain(key string, capacity int, status string) error {
	node := newNode(KindTrain, key)
	node.SetAttr("capacity", capacity)
	node.SetAttr("status", status)
	if err := s.gm.StoreNode(s.part, node); err != nil {
		return fmt.Errorf("failed to store train %s: %w", key, err)
	}
	return nil
}

// UpdateTrain sets the supplied attributes of an existing train node
func (s *Store) UpdateTrain(key string, capacity *int, status *string) error {
	node := newNode(KindTrain, key)
	if capacity != nil {
		node.SetAttr("capacity", *capacity)
	}
	if status != nil {
		node.SetAttr("status", *status)
	}
	if err := s.gm.UpdateNode(s.part, node); err != nil {
		return fmt.Errorf("failed to update train %s: %w", key, err)
	}
	return nil
}

// TrainAttrs returns capacity and status of a train node
func (s *Store) TrainAttrs(key string) (int, string, bool, error) {
	node, err := s.gm.FetchNode(s.part, key, KindTrain)
	if err != nil {
		return 0, "", false, fmt.Errorf("failed to fetch train %s: %w", key, err)
	}
	if node == nil {
		return 0, "", false, nil
	}
	return intAttr(node.Attr("capacity")), stringAttr(node.Attr("status")), true, nil
}

// PutStation stores a station node
func (s *Store) PutStation(key, details string) error {
	node := newNode(KindStation, key)
	node.SetAttr("details", details)
	if err := s.gm.StoreNode(s.part, node); err != nil {
		return fmt.Errorf("failed to store station %s: %w", key, err)
	}
	return nil
}

// Connect stores a directed CONNECTED_TO edge from start to end
func (s *Store) Connect(start, end string, minutes int) error {
	edge := newEdge(EdgeConnectedTo, connectionKey(start, end),
		KindStation, start, roleDeparture,
		KindStation, end, roleArrival)
	edge.SetAttr("travel_time", minutes)

	if err := s.gm.StoreEdge(s.part, edge); err != nil {
		return fmt.Errorf("failed to connect %s to %s: %w", start, end, err)
	}
	return nil
}

// Disconnect removes the directed edge from start to end when present
func (s *Store) Disconnect(start, end string) error {
	if _, err := s.gm.RemoveEdge(s.part, connectionKey(start, end), EdgeConnectedTo); err != nil {
		return fmt.Errorf("failed to disconnect %s from %s: %w", start, end, err)
	}
	return nil
}

// Connected reports whether a directed edge from start to end exists
func (s *Store) Connected(start, end string) (bool, error) {
	edge, err := s.gm.FetchEdge(s.part, connectionKey(start, end), EdgeConnectedTo)
	if err != nil {
		return false, fmt.Errorf("failed to fetch connection %s to %s: %w", start, end, err)
	}
	return edge != nil, nil
}

// Neighbors returns the outgoing connections of a station ordered by destination key
func (s *Store) Neighbors(station string) ([]Hop, error) {
	nodes, edges, err := s.gm.Traverse(s.part, station, KindStation, specConnections, true)
	if err != nil {
		return nil, fmt.Errorf("failed to traverse connections of %s: %w", station, err)
	}

	hops := make([]Hop, 0, len(nodes))
	for i, node := range nodes {
		hops = append(hops, Hop{
			To:         node.Key(),
			TravelTime: intAttr(edges[i].Attr("travel_time")),
		})
	}
	sort.Slice(hops, func(i, j int) bool { return hops[i].To < hops[j].To })

	return hops, nil
}

// PutSchedule stores the schedule node and one STOPS_AT edge per stop in a single graph transaction
func (s *Store) PutSchedule(sched Schedule) error {
	trans := graph.NewGraphTrans(s.gm)

	node := newNode(KindSchedule, sched.ID)
	node.SetAttr("train_id", sched.TrainID)
	node.SetAttr("start_time", sched.StartTime)
	node.SetAttr("valid_from", sched.ValidFrom)
	node.SetAttr("valid_until", sched.ValidUntil)
	if err := trans.StoreNode(s.part, node); err != nil {
		return fmt.Errorf("failed to stage schedule %s: %w", sched.ID, err)
	}

	for seq, stop := range sched.Stops {
		edge := newEdge(EdgeStopsAt, fmt.Sprintf("%s#%d", sched.ID, seq),
			KindSchedule, sched.ID, roleSchedule,
			KindStation, stop.Station, roleStop)
		edge.SetAttr("wait_time", stop.WaitTime)
		edge.SetAttr("seq", seq)
		if err := trans.StoreEdge(s.part, edge); err != nil {
			return fmt.Errorf("failed to stage stop %d of schedule %s: %w", seq, sched.ID, err)
		}
	}

	if err := trans.Commit(); err != nil {
		return fmt.Errorf("failed to store schedule %s: %w", sched.ID, err)
	}
	return nil
}

// Schedule fetches one schedule with its stops
func (s *Store) Schedule(id string) (*Schedule, error) {
	node, err := s.gm.FetchNode(s.part, id, KindSchedule)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule %s: %w", id, err)
	}
	if node == nil {
		return nil, nil
	}
	return s.loadSchedule(node)
}

// Schedules lists every schedule ordered by id
func (s *Store) Schedules() ([]Schedule, error) {
	if s.gm.NodeCount(KindSchedule) == 0 {
		return []Schedule{}, nil
	}

	res, err := eql.RunQuery("schedules", s.part, "get "+KindSchedule, s.gm)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	ids := make([]string, 0, res.RowCount())
	for i := 0; i < res.RowCount(); i++ {
		if id, ok := nodeKeyFromSource(res.RowSource(i)); ok {
			ids = append(ids, id)
		}
	}

	return s.fetchSchedules(ids)
}

// SchedulesForTrain lists the schedules of one train ordered by id
func (s *Store) SchedulesForTrain(trainID string) ([]Schedule, error) {
	iq, err := s.gm.NodeIndexQuery(s.part, KindSchedule)
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule index: %w", err)
	}
	if iq == nil {
		return []Schedule{}, nil
	}

	ids, err := iq.LookupValue("train_id", trainID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up schedules of %s: %w", trainID, err)
	}

	scheds, err := s.fetchSchedules(ids)
	if err != nil {
		return nil, err
	}

	// The value index ignores case
	matched := scheds[:0]
	for _, sched := range scheds {
		if sched.TrainID == trainID {
			matched = append(matched, sched)
		}
	}
	return matched, nil
}

// RemoveSchedulesForTrain deletes every schedule node of a train
func (s *Store) RemoveSchedulesForTrain(trainID string) error {
	scheds, err := s.SchedulesForTrain(trainID)
	if err != nil {
		return err
	}
	for _, sched := range scheds {
		if err := s.RemoveNode(KindSchedule, sched.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) fetchSchedules(ids []string) ([]Schedule, error) {
	sort.Strings(ids)

	scheds := make([]Schedule, 0, len(ids))
	for _, id := range ids {
		sched, err := s.Schedule(id)
		if err != nil {
			return nil, err
		}
		if sched != nil {
			scheds = append(scheds, *sched)
		}
	}
	return scheds, nil
}

func (s *Store) loadSchedule(node data.Node) (*Schedule, error) {
	sched := &Schedule{
		ID:         node.Key(),
		TrainID:    stringAttr(node.Attr("train_id")),
		StartTime:  stringAttr(node.Attr("start_time")),
		ValidFrom:  stringAttr(node.Attr("valid_from")),
		ValidUntil: stringAttr(node.Attr("valid_until")),
	}

	nodes, edges, err := s.gm.Traverse(s.part, sched.ID, KindSchedule, specStops, true)
	if err != nil {
		return nil, fmt.Errorf("failed to traverse stops of %s: %w", sched.ID, err)
	}

	type seqStop struct {
		seq  int
		stop Stop
	}
	ordered := make([]seqStop, 0, len(nodes))
	for i, n := range nodes {
		ordered = append(ordered, seqStop{
			seq:  intAttr(edges[i].Attr("seq")),
			stop: Stop{Station: n.Key(), WaitTime: intAttr(edges[i].Attr("wait_time"))},
		})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	sched.Stops = make([]Stop, len(ordered))
	for i, o := range ordered {
		sched.Stops[i] = o.stop
	}

	return sched, nil
}

// PutBooking upserts the passenger node and stores the BOOKED edge for a purchase
func (s *Store) PutBooking(b Booking) error {
	trans := graph.NewGraphTrans(s.gm)

	user := newNode(KindUser, b.UserEmail)
	if err := trans.UpdateNode(s.part, user); err != nil {
		return fmt.Errorf("failed to stage user %s: %w", b.UserEmail, err)
	}

	edge := newEdge(EdgeBooked, bookingKey(b.PurchaseID),
		KindUser, b.UserEmail, rolePassenger,
		KindTrain, b.TrainID, roleTrain)
	edge.SetAttr("time", b.Time)
	edge.SetAttr("reserved_seat", b.ReservedSeat)
	if err := trans.StoreEdge(s.part, edge); err != nil {
		return fmt.Errorf("failed to stage booking %d: %w", b.PurchaseID, err)
	}

	if err := trans.Commit(); err != nil {
		return fmt.Errorf("failed to store booking %d: %w", b.PurchaseID, err)
	}
	return nil
}

// RemoveBooking removes the BOOKED edge of a purchase when present
func (s *Store) RemoveBooking(purchaseID uint64) error {
	if _, err := s.gm.RemoveEdge(s.part, bookingKey(purchaseID), EdgeBooked); err != nil {
		return fmt.Errorf("failed to remove booking %d: %w", purchaseID, err)
	}
	return nil
}

// HasBooking reports whether the BOOKED edge of a purchase exists
func (s *Store) HasBooking(purchaseID uint64) (bool, error) {
	edge, err := s.gm.FetchEdge(s.part, bookingKey(purchaseID), EdgeBooked)
	if err != nil {
		return false, fmt.Errorf("failed to fetch booking %d: %w", purchaseID, err)
	}
	return edge != nil, nil
}

func newNode(kind, key string) data.Node {
	node := data.NewGraphNode()
	node.SetAttr(data.NodeKey, key)
	node.SetAttr(data.NodeKind, kind)
	return node
}

func newEdge(kind, key, kind1, key1, role1, kind2, key2, role2 string) data.Edge {
	edge := data.NewGraphEdge()
	edge.SetAttr(data.NodeKey, key)
	edge.SetAttr(data.NodeKind, kind)

	edge.SetAttr(data.EdgeEnd1Key, key1)
	edge.SetAttr(data.EdgeEnd1Kind, kind1)
	edge.SetAttr(data.EdgeEnd1Role, role1)
	edge.SetAttr(data.EdgeEnd1Cascading, false)

	edge.SetAttr(data.EdgeEnd2Key, key2)
	edge.SetAttr(data.EdgeEnd2Kind, kind2)
	edge.SetAttr(data.EdgeEnd2Role, role2)
	edge.SetAttr(data.EdgeEnd2Cascading, false)

	return edge
}

// connectionKey length-prefixes the start key so ids containing "->" cannot collide
func connectionKey(start, end string) string {
	return fmt.Sprintf("%d:%s->%s", len(start), start, end)
}

func bookingKey(purchaseID uint64) string {
	return "purchase-" + strconv.FormatUint(purchaseID, 10)
}

// nodeKeyFromSource parses an EQL row source of the form n:<kind>:<key>
func nodeKeyFromSource(src []string) (string, bool) {
	if len(src) == 0 {
		return "", false
	}
	parts := strings.SplitN(src[0], ":", 3)
	if len(parts) != 3 || parts[0] != "n" {
		return "", false
	}
	return parts[2], true
}

func intAttr(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func stringAttr(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
