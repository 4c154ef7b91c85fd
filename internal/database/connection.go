// connection.go
//
// Transit network coordination service: ledger, topology, booking and search
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of traits.
// traits is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// traits is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with traits.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	puresqlite "github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// credentials selects which database account a pool connects with
type credentials struct {
	user     string
	password string
	limit    int
	label    string
}

// Connect establishes the app (read) connection based on the configured DB_TYPE
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, credentials{
		user:     cfg.DBAppUser,
		password: cfg.DBAppPassword,
		limit:    cfg.DBAppConnectionLimit,
		label:    "app",
	})
}

// ConnectUser establishes the privileged connection used for ledger writes
func ConnectUser(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, credentials{
		user:     cfg.DBUser,
		password: cfg.DBPassword,
		limit:    cfg.DBConnectionLimit,
		label:    "user",
	})
}

func open(cfg *config.Config, creds credentials) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg, creds)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.DBLogLevel)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", creds.label, err)
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	limit := creds.limit
	if cfg.IsSQLite() {
		// A single connection keeps an in-memory database alive and serializes writers
		limit = 1
	}
	if limit > 0 {
		sqlDB.SetMaxOpenConns(limit)
		sqlDB.SetMaxIdleConns(max(limit/2, 1))
	}

	log.Printf("Connected to %s %s database: %s", cfg.DBType, creds.label, cfg.DBAppDatabase)

	return db, nil
}

func dialectorFor(cfg *config.Config, creds credentials) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		dsnConfig := mysqldriver.NewConfig()
		dsnConfig.User = creds.user
		dsnConfig.Passwd = creds.password
		dsnConfig.Net = "tcp"
		dsnConfig.Addr = fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
		dsnConfig.DBName = cfg.DBAppDatabase
		dsnConfig.ParseTime = true
		dsnConfig.Loc = time.UTC
		dsnConfig.Params = map[string]string{"charset": "utf8mb4"}
		return mysql.Open(dsnConfig.FormatDSN()), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			creds.user,
			creds.password,
			cfg.DBAppDatabase,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// For SQLite, DBAppDatabase is the file path and both pools share it
		return sqlite.Open(sqliteDSN(cfg.DBAppDatabase)), nil

	case "sqlite-purego":
		return puresqlite.Open(sqliteDSN(cfg.DBAppDatabase)), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			creds.user,
			creds.password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBAppDatabase,
		)
		return sqlserver.Open(dsn), nil
	}

	return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
}

// sqliteDSN adds a busy timeout so concurrent writers wait for the lock
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// AutoMigrate runs automatic migrations for all ledger models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Train{},
		&models.SeatReservation{},
		&models.Station{},
		&models.Purchase{},
	)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
