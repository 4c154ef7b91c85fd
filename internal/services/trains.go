package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"gorm.io/gorm"
)

// AddTrain creates a train in both stores and returns its key.
// An empty key is replaced by a generated one.
func (t *Traits) AddTrain(ctx context.Context, key string, capacity int, status types.TrainStatus) (string, error) {
	if key == "" {
		key = uuid.NewString()
		log.Printf("Generated new train key: %s", key)
	}
	if capacity <= 0 {
		return "", types.ValidationError("Invalid train capacity")
	}
	if !status.Valid() {
		return "", types.ValidationError("Invalid train status")
	}

	exists, err := t.Graph.HasNode(topology.KindTrain, key)
	if err != nil {
		return "", err
	}
	if exists {
		return "", types.ConflictError("Train already exists")
	}

	train := models.Train{ID: key, Capacity: capacity, Status: status}

	err = newUnitOfWork("AddTrain", key).
		Step("ledger",
			func(ctx context.Context) error {
				if err := t.AdminDB.WithContext(ctx).Create(&train).Error; err != nil {
					if isDuplicateKey(err) {
						return types.ConflictError("Train already exists")
					}
					return fmt.Errorf("failed to add train %s: %w", key, err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Delete(&models.Train{}, "id = ?", key).Error
			}).
		Step("graph",
			func(context.Context) error {
				return t.Graph.PutTrain(key, capacity, status.String())
			}, nil).
		Run(ctx)
	if err != nil {
		return "", err
	}

	t.setLastTrainKey(key)
	log.Printf("Train %s added with capacity %d and status %s", key, capacity, status)

	return key, nil
}

// UpdateTrainDetails applies the supplied fields to both stores. Nil fields are left untouched
// and an unknown key is a no-op.
func (t *Traits) UpdateTrainDetails(ctx context.Context, key string, capacity *int, status *types.TrainStatus) error {
	if capacity != nil && *capacity <= 0 {
		return types.ValidationError("Invalid train capacity")
	}
	if status != nil && !status.Valid() {
		return types.ValidationError("Invalid train status")
	}
	if capacity == nil && status == nil {
		return nil
	}

	var before models.Train
	if err := quiet(t.AdminDB).WithContext(ctx).Where("id = ?", key).First(&before).Error; err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load train %s: %w", key, err)
	}

	updates := map[string]interface{}{}
	var graphStatus *string
	if capacity != nil {
		updates["capacity"] = *capacity
	}
	if status != nil {
		updates["status"] = *status
		name := status.String()
		graphStatus = &name
	}

	return newUnitOfWork("UpdateTrainDetails", key).
		Step("ledger",
			func(ctx context.Context) error {
				if err := t.AdminDB.WithContext(ctx).Model(&models.Train{}).Where("id = ?", key).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update train %s: %w", key, err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Model(&models.Train{}).Where("id = ?", key).
					Updates(map[string]interface{}{"capacity": before.Capacity, "status": before.Status}).Error
			}).
		Step("graph",
			func(context.Context) error {
				return t.Graph.UpdateTrain(key, capacity, graphStatus)
			}, nil).
		Run(ctx)
}

// DeleteTrain removes a train with its purchases, seat counters, schedules and relationships.
// An unknown key is a no-op.
func (t *Traits) DeleteTrain(ctx context.Context, key string) error {
	var (
		train        models.Train
		purchases    []models.Purchase
		reservations []models.SeatReservation
	)

	err := quiet(t.AdminDB).WithContext(ctx).Where("id = ?", key).First(&train).Error
	if isNotFound(err) {
		return t.removeTrainGraph(key)
	}
	if err != nil {
		return fmt.Errorf("failed to load train %s: %w", key, err)
	}

	return newUnitOfWork("DeleteTrain", key).
		Step("ledger",
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					if err := tx.Where("train_id = ?", key).Find(&purchases).Error; err != nil {
						return fmt.Errorf("failed to load purchases of %s: %w", key, err)
					}
					if err := tx.Where("train_id = ?", key).Find(&reservations).Error; err != nil {
						return fmt.Errorf("failed to load seat reservations of %s: %w", key, err)
					}

					if err := tx.Where("train_id = ?", key).Delete(&models.Purchase{}).Error; err != nil {
						return fmt.Errorf("failed to delete purchases of %s: %w", key, err)
					}
					if err := tx.Where("train_id = ?", key).Delete(&models.SeatReservation{}).Error; err != nil {
						return fmt.Errorf("failed to delete seat reservations of %s: %w", key, err)
					}
					if err := tx.Delete(&models.Train{}, "id = ?", key).Error; err != nil {
						return fmt.Errorf("failed to delete train %s: %w", key, err)
					}

					log.Printf("Deleted train %s with %d purchase(s)", key, len(purchases))
					return nil
				})
			},
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					if err := tx.Create(&train).Error; err != nil {
						return err
					}
					if len(purchases) > 0 {
						if err := tx.Create(&purchases).Error; err != nil {
							return err
						}
					}
					if len(reservations) > 0 {
						if err := tx.Create(&reservations).Error; err != nil {
							return err
						}
					}
					return nil
				})
			}).
		Step("graph",
			func(context.Context) error {
				return t.removeTrainGraph(key)
			}, nil).
		Run(ctx)
}

func (t *Traits) removeTrainGraph(key string) error {
	if err := t.Graph.RemoveSchedulesForTrain(key); err != nil {
		return err
	}
	return t.Graph.RemoveNode(topology.KindTrain, key)
}

// GetTrainCurrentStatus returns the status of a train and whether it exists
func (t *Traits) GetTrainCurrentStatus(ctx context.Context, key string) (types.TrainStatus, bool, error) {
	var train models.Train
	err := quiet(t.AppDB).WithContext(ctx).Select("id", "status").Where("id = ?", key).First(&train).Error
	if err != nil {
		if isNotFound(err) {
			return types.StatusUnknown, false, nil
		}
		return types.StatusUnknown, false, fmt.Errorf("failed to load status of train %s: %w", key, err)
	}
	return train.Status, true, nil
}
