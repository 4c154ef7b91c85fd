package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/localnerve/traits/internal/metrics"
	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// Connection identifies one departure of a train
type Connection struct {
	TrainID       string    `json:"trainId"`
	DepartureTime time.Time `json:"departureTime"`
}

// SeatAvailability is the seat state of one departure
type SeatAvailability struct {
	TrainID       string    `json:"trainId"`
	DepartureTime time.Time `json:"departureTime"`
	Capacity      int       `json:"capacity"`
	Reserved      int       `json:"reserved"`
	Free          int       `json:"free"`
}

// departureKey normalizes a departure so equal instants always hit the same seat counter
func departureKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// BuyTicket records a purchase and, when reserveSeat is set, takes one seat of the departure.
// The ledger write is atomic: a full departure leaves no purchase behind.
func (t *Traits) BuyTicket(ctx context.Context, email string, conn *Connection, reserveSeat bool) (*models.Purchase, error) {
	var count int64
	if err := t.AdminDB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	if count == 0 {
		return nil, types.NotFoundError("User does not exist")
	}

	if conn == nil || conn.TrainID == "" || conn.DepartureTime.IsZero() {
		return nil, types.ValidationError("Invalid connection")
	}

	departure := departureKey(conn.DepartureTime)
	purchase := &models.Purchase{
		UserEmail:    email,
		TrainID:      conn.TrainID,
		PurchaseTime: departure,
		ReservedSeat: reserveSeat,
	}

	err := newUnitOfWork("BuyTicket", conn.TrainID).
		Step("ledger",
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					return reserve(tx, purchase)
				})
			},
			func(ctx context.Context) error {
				return t.AdminDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					return release(tx, purchase)
				})
			}).
		Step("graph",
			func(context.Context) error {
				return t.Graph.PutBooking(topology.Booking{
					PurchaseID:   purchase.ID,
					UserEmail:    email,
					TrainID:      conn.TrainID,
					Time:         departure.Format(time.RFC3339),
					ReservedSeat: reserveSeat,
				})
			}, nil).
		Run(ctx)
	if err != nil {
		return nil, err
	}

	metrics.TicketsSold.WithLabelValues(metrics.ReservedLabel(reserveSeat)).Inc()
	log.Printf("Ticket %d sold to %s for %s at %s (reserved: %t)",
		purchase.ID, email, conn.TrainID, departure.Format(time.RFC3339), reserveSeat)

	return purchase, nil
}

// reserve runs inside the booking transaction
func reserve(tx *gorm.DB, purchase *models.Purchase) error {
	var train models.Train
	err := quiet(tx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", purchase.TrainID).
		First(&train).Error
	if err != nil {
		if isNotFound(err) {
			return types.NotFoundError("Train does not exist")
		}
		return fmt.Errorf("failed to lock train %s: %w", purchase.TrainID, err)
	}

	if err := tx.Clauses(hints.CommentBefore("insert", "traits:buy_ticket")).Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	if !purchase.ReservedSeat {
		return nil
	}

	counter := models.SeatReservation{TrainID: purchase.TrainID, DepartureTime: purchase.PurchaseTime}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return fmt.Errorf("failed to create seat counter: %w", err)
	}

	result := tx.Model(&models.SeatReservation{}).
		Where("train_id = ? AND departure_time = ? AND reserved < ?", purchase.TrainID, purchase.PurchaseTime, train.Capacity).
		Update("reserved", gorm.Expr("reserved + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to reserve seat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.SeatConflicts.Inc()
		return types.ConflictError("No available seats")
	}

	if err := tx.Model(&models.Train{}).Where("id = ?", purchase.TrainID).
		Update("reserved_seats", gorm.Expr("reserved_seats + ?", 1)).Error; err != nil {
		return fmt.Errorf("failed to count reserved seat: %w", err)
	}

	return nil
}

// release undoes reserve for a purchase that was committed
func release(tx *gorm.DB, purchase *models.Purchase) error {
	if err := tx.Delete(&models.Purchase{}, purchase.ID).Error; err != nil {
		return fmt.Errorf("failed to delete purchase %d: %w", purchase.ID, err)
	}
	if !purchase.ReservedSeat {
		return nil
	}

	if err := tx.Model(&models.SeatReservation{}).
		Where("train_id = ? AND departure_time = ? AND reserved > 0", purchase.TrainID, purchase.PurchaseTime).
		Update("reserved", gorm.Expr("reserved - ?", 1)).Error; err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if err := tx.Model(&models.Train{}).Where("id = ? AND reserved_seats > 0", purchase.TrainID).
		Update("reserved_seats", gorm.Expr("reserved_seats - ?", 1)).Error; err != nil {
		return fmt.Errorf("failed to uncount reserved seat: %w", err)
	}
	return nil
}

// GetPurchaseHistory returns the purchases of a user, latest departure first
func (t *Traits) GetPurchaseHistory(ctx context.Context, email string) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := t.AppDB.WithContext(ctx).
		Clauses(hints.Comment("select", "traits:purchase_history")).
		Where("user_email = ?", email).
		Order("purchase_time DESC").Order("id DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load purchases of %s: %w", email, err)
	}
	return purchases, nil
}

// GetSeatAvailability reports capacity and reserved seats of one departure
func (t *Traits) GetSeatAvailability(ctx context.Context, trainID string, departure time.Time) (*SeatAvailability, error) {
	if departure.IsZero() {
		return nil, types.ValidationError("Invalid departure time")
	}
	departure = departureKey(departure)

	var train models.Train
	if err := quiet(t.AppDB).WithContext(ctx).Where("id = ?", trainID).First(&train).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFoundError("Train does not exist")
		}
		return nil, fmt.Errorf("failed to load train %s: %w", trainID, err)
	}

	var counter models.SeatReservation
	err := quiet(t.AppDB).WithContext(ctx).
		Where("train_id = ? AND departure_time = ?", trainID, departure).
		First(&counter).Error
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to load seat counter of %s: %w", trainID, err)
	}

	return &SeatAvailability{
		TrainID:       trainID,
		DepartureTime: departure,
		Capacity:      train.Capacity,
		Reserved:      counter.Reserved,
		Free:          max(train.Capacity-counter.Reserved, 0),
	}, nil
}
