package models

import "time"

// Purchase is an append-only ledger entry for one ticket. It has no foreign keys:
// purchases of a deleted user remain, train deletion removes them explicitly.
type Purchase struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserEmail    string    `gorm:"size:255;not null;index" json:"userEmail"`
	TrainID      string    `gorm:"size:255;not null;index:idx_purchases_train_time" json:"trainId"`
	PurchaseTime time.Time `gorm:"not null;index:idx_purchases_train_time" json:"purchaseTime"`
	ReservedSeat bool      `gorm:"not null;default:false" json:"reservedSeat"`
}

// TableName overrides the table name for Purchase
func (Purchase) TableName() string {
	return "purchases"
}
