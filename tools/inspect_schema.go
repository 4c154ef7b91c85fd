package main

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/traits/data"
	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/testenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const createTable = "CREATE TABLE IF NOT EXISTS "

// Prints the ledger tables GORM migrates next to the MariaDB bootstrap script and
// reports tables that only one of them declares.
func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		log.Fatal(err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var migrated []string
	if err := db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&migrated).Error; err != nil {
		log.Fatal(err)
	}

	script := scriptTables()
	for _, table := range migrated {
		fmt.Printf("\n=== Table: %s ===\n", table)

		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
		fmt.Println(schema)

		var indexes []string
		db.Raw("SELECT sql FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL", table).Scan(&indexes)
		for _, index := range indexes {
			fmt.Println(index)
		}

		if _, ok := script[table]; !ok {
			fmt.Println("-- missing from data/initdb/mariadb")
		}
	}

	for table, stmt := range script {
		if !slices.Contains(migrated, table) {
			fmt.Printf("\n=== Script only: %s ===\n%s\n", table, stmt)
		}
	}
}

// scriptTables maps table names to their CREATE statement in the MariaDB bootstrap script
func scriptTables() map[string]string {
	tables := map[string]string{}
	script := data.Expand(data.InitdbMariaDBTables, map[string]string{"DB_APP_DATABASE": "traits"})
	for _, stmt := range testenv.SplitStatements(script) {
		rest, ok := strings.CutPrefix(stmt, createTable)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, " ")
		tables[strings.TrimPrefix(name, "traits.")] = stmt
	}
	return tables
}
