package services

import (
	"context"
	"fmt"
	"log"

	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
)

// ScheduleStop is one stop of a requested schedule
type ScheduleStop struct {
	Station  string `json:"station"`
	WaitTime int    `json:"waitTime"`
}

// ScheduleDate is a calendar day. Only numeric ranges are checked.
type ScheduleDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (d ScheduleDate) valid() bool {
	return d.Day >= 1 && d.Day <= 31 && d.Month >= 1 && d.Month <= 12 && d.Year >= 0
}

func (d ScheduleDate) ordinal() int {
	return d.Year*10000 + d.Month*100 + d.Day
}

func (d ScheduleDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d ScheduleDate) compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// ParseScheduleDate reads a YYYY-MM-DD date
func ParseScheduleDate(s string) (ScheduleDate, error) {
	var d ScheduleDate
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &d.Month, &d.Day); err != nil {
		return d, fmt.Errorf("invalid schedule date %q: %w", s, err)
	}
	return d, nil
}

// ScheduleRequest describes a schedule to add. An empty TrainKey selects
// the most recently created train.
type ScheduleRequest struct {
	TrainKey   string         `json:"trainKey"`
	Hour       int            `json:"hour"`
	Minute     int            `json:"minute"`
	Stops      []ScheduleStop `json:"stops"`
	ValidFrom  ScheduleDate   `json:"validFrom"`
	ValidUntil ScheduleDate   `json:"validUntil"`
}

// ScheduleID is the deterministic key of a schedule: train, start time and validity window
func ScheduleID(trainKey string, hour, minute int, from, until ScheduleDate) string {
	return fmt.Sprintf("%s-%02d%02d-%s-%s", trainKey, hour, minute, from.compact(), until.compact())
}

// AddSchedule validates a schedule against the topology and stores it. It returns the schedule id.
func (t *Traits) AddSchedule(ctx context.Context, req ScheduleRequest) (string, error) {
	trainKey := req.TrainKey
	if trainKey == "" {
		trainKey = t.LastTrainKey()
	}
	if trainKey == "" {
		return "", types.ValidationError("Train key cannot be None")
	}

	if len(req.Stops) < 2 {
		return "", types.ValidationError("Schedule must have at least two stops")
	}
	if req.Hour < 0 || req.Hour > 23 || req.Minute < 0 || req.Minute > 59 {
		return "", types.ValidationError("Invalid start time")
	}
	if !req.ValidFrom.valid() {
		return "", types.ValidationError("Invalid start date")
	}
	if !req.ValidUntil.valid() {
		return "", types.ValidationError("Invalid end date")
	}
	if req.ValidFrom.ordinal() > req.ValidUntil.ordinal() {
		return "", types.ValidationError("End date must be after start date")
	}
	for _, stop := range req.Stops {
		if stop.WaitTime < 0 {
			return "", types.ValidationError("Invalid wait time at station %s", stop.Station)
		}
	}

	exists, err := t.Graph.HasNode(topology.KindTrain, trainKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", types.NotFoundError("Train does not exist")
	}

	unlock := t.lockSchedules(trainKey)
	defer unlock()

	for i := 0; i < len(req.Stops)-1; i++ {
		from, to := req.Stops[i].Station, req.Stops[i+1].Station
		connected, err := t.Graph.Connected(from, to)
		if err != nil {
			return "", err
		}
		if !connected {
			return "", types.ValidationError("Stations %s and %s are not connected", from, to)
		}
	}

	id := ScheduleID(trainKey, req.Hour, req.Minute, req.ValidFrom, req.ValidUntil)

	existing, err := t.Graph.Schedule(id)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", types.ConflictError("Schedule already exists")
	}

	scheds, err := t.Graph.SchedulesForTrain(trainKey)
	if err != nil {
		return "", err
	}
	for _, other := range scheds {
		from, err := ParseScheduleDate(other.ValidFrom)
		if err != nil {
			return "", err
		}
		until, err := ParseScheduleDate(other.ValidUntil)
		if err != nil {
			return "", err
		}
		if req.ValidFrom.ordinal() <= until.ordinal() && from.ordinal() <= req.ValidUntil.ordinal() {
			return "", types.ConflictError("Schedule is overlapping with schedule %s", other.ID)
		}
	}

	sched := topology.Schedule{
		ID:         id,
		TrainID:    trainKey,
		StartTime:  fmt.Sprintf("%02d:%02d", req.Hour, req.Minute),
		ValidFrom:  req.ValidFrom.String(),
		ValidUntil: req.ValidUntil.String(),
		Stops:      make([]topology.Stop, len(req.Stops)),
	}
	for i, stop := range req.Stops {
		sched.Stops[i] = topology.Stop{Station: stop.Station, WaitTime: stop.WaitTime}
	}

	if err := t.Graph.PutSchedule(sched); err != nil {
		return "", err
	}

	log.Printf("Schedule %s added with %d stops", id, len(sched.Stops))
	return id, nil
}

// GetAllSchedules returns every schedule with its ordered stops
func (t *Traits) GetAllSchedules(ctx context.Context) ([]topology.Schedule, error) {
	return t.Graph.Schedules()
}

// GetTrainSchedules returns the schedules of one train
func (t *Traits) GetTrainSchedules(ctx context.Context, trainKey string) ([]topology.Schedule, error) {
	exists, err := t.Graph.HasNode(topology.KindTrain, trainKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.NotFoundError("Train does not exist")
	}
	return t.Graph.SchedulesForTrain(trainKey)
}
