package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// isDuplicateKey reports whether a ledger error is a primary or unique key violation.
// gorm translates most dialects with TranslateError; the driver checks cover sessions
// opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == postgresUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isNotFound reports whether a ledger lookup matched no row
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
