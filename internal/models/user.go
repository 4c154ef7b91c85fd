package models

import "time"

// User is a ticket buyer, keyed by email
type User struct {
	Email     string `gorm:"primaryKey;size:255"`
	Details   JSON
	CreatedAt time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
