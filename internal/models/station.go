package models

import "time"

// Station is the ledger row of a train station
type Station struct {
	ID        string `gorm:"primaryKey;size:255"`
	Details   JSON
	CreatedAt time.Time
}

// TableName overrides the table name for Station
func (Station) TableName() string {
	return "stations"
}
