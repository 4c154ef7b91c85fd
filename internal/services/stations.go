package services

import (
	"context"
	"fmt"
	"log"

	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
)

// MaxTravelTime is the longest allowed direct connection, in minutes
const MaxTravelTime = 60

// AddTrainStation creates a station in both stores
func (t *Traits) AddTrainStation(ctx context.Context, key string, details interface{}) error {
	if key == "" {
		return types.ValidationError("Station key cannot be empty")
	}

	payload, err := models.NewJSON(details)
	if err != nil {
		return types.ValidationError("Invalid station details: %v", err)
	}

	exists, err := t.Graph.HasNode(topology.KindStation, key)
	if err != nil {
		return err
	}
	if exists {
		return types.ConflictError("Station already exists")
	}

	station := models.Station{ID: key, Details: payload}

	err = newUnitOfWork("AddTrainStation", key).
		Step("ledger",
			func(ctx context.Context) error {
				if err := t.AdminDB.WithContext(ctx).Create(&station).Error; err != nil {
					if isDuplicateKey(err) {
						return types.ConflictError("Station already exists")
					}
					return fmt.Errorf("failed to add station %s: %w", key, err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Delete(&models.Station{}, "id = ?", key).Error
			}).
		Step("graph",
			func(context.Context) error {
				return t.Graph.PutStation(key, string(payload.JSON))
			}, nil).
		Run(ctx)
	if err != nil {
		return err
	}

	log.Printf("Station %s added", key)
	return nil
}

// ConnectTrainStations creates the directed connection start -> end
func (t *Traits) ConnectTrainStations(ctx context.Context, start, end string, minutes int) error {
	if minutes <= 0 || minutes > MaxTravelTime {
		return types.ValidationError("Invalid travel time")
	}
	if start == end {
		return types.ValidationError("A station cannot be connected to itself")
	}

	for _, key := range []string{start, end} {
		exists, err := t.Graph.HasNode(topology.KindStation, key)
		if err != nil {
			return err
		}
		if !exists {
			return types.NotFoundError("Station %s does not exist", key)
		}
	}

	connected, err := t.Graph.Connected(start, end)
	if err != nil {
		return err
	}
	if connected {
		return types.ConflictError("Stations are already connected")
	}

	if err := t.Graph.Connect(start, end, minutes); err != nil {
		return err
	}

	log.Printf("Connected %s -> %s (%d min)", start, end, minutes)
	return nil
}
