package models

import (
	"time"

	"github.com/localnerve/traits/internal/types"
)

// Train is the ledger row of a train. ReservedSeats is the total over all departures;
// the per-departure bound is kept in SeatReservation.
type Train struct {
	ID            string            `gorm:"primaryKey;size:255"`
	Capacity      int               `gorm:"not null"`
	Status        types.TrainStatus `gorm:"type:varchar(32);not null"`
	ReservedSeats int               `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SeatReservation counts reserved seats for one departure of a train
type SeatReservation struct {
	TrainID       string    `gorm:"primaryKey;size:255"`
	DepartureTime time.Time `gorm:"primaryKey"`
	Reserved      int       `gorm:"not null;default:0"`
}

// TableName overrides the table name for Train
func (Train) TableName() string {
	return "trains"
}

// TableName overrides the table name for SeatReservation
func (SeatReservation) TableName() string {
	return "seat_reservations"
}
