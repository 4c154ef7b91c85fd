package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/localnerve/traits/internal/models"
	"github.com/localnerve/traits/internal/types"
)

// ValidEmail reports whether an address has an @ followed by a domain containing a dot
func ValidEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".")
}

// AddUser inserts a user into the ledger. details is any JSON-serializable value.
func (t *Traits) AddUser(ctx context.Context, email string, details interface{}) error {
	if !ValidEmail(email) {
		return types.ValidationError("Invalid email address")
	}

	payload, err := models.NewJSON(details)
	if err != nil {
		return types.ValidationError("Invalid user details: %v", err)
	}

	user := models.User{Email: email, Details: payload}
	if err := t.AdminDB.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return types.ConflictError("User already exists")
		}
		return fmt.Errorf("failed to add user %s: %w", email, err)
	}

	log.Printf("User %s added", email)
	return nil
}

// DeleteUser removes the user row. Purchases and their graph bookings are kept.
// Deleting an unknown user is a no-op.
func (t *Traits) DeleteUser(ctx context.Context, email string) error {
	res := t.AdminDB.WithContext(ctx).Delete(&models.User{}, "email = ?", email)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %s: %w", email, res.Error)
	}

	// The User node stays so its BOOKED edges keep mirroring the kept purchases
	if res.RowsAffected > 0 {
		log.Printf("User %s deleted", email)
	}
	return nil
}

// GetAllUsers returns every user email in ascending order
func (t *Traits) GetAllUsers(ctx context.Context) ([]string, error) {
	emails := []string{}
	if err := t.AppDB.WithContext(ctx).Model(&models.User{}).Order("email").Pluck("email", &emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return emails, nil
}
