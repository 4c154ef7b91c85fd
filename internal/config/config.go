package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Ledger database configuration. The app pool serves reads, the user pool
	// carries the write privileges used by the coordinator.
	DBType               string // mysql, postgres, sqlite, sqlite-purego, sqlserver
	DBHost               string
	DBPort               string
	DBAppDatabase        string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int
	DBUser               string
	DBPassword           string
	DBConnectionLimit    int
	DBLogLevel           string // silent, error, warn, info

	// Topology graph configuration
	GraphStorage   string // memory or disk
	GraphPath      string
	GraphPartition string

	// Connection search
	SearchMaxHops int

	// Authorizer configuration. Authorization is disabled when AuthzURL is empty.
	AuthzURL      string
	AuthzClientID string
}

// LoadFile loads environment variables from an env file before Load is called.
// A missing file is not an error.
func LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Env file %s not found, using current environment", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBAppDatabase:        getEnv("DB_APP_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DBLogLevel:           getEnv("DB_LOG_LEVEL", "warn"),
		GraphStorage:         getEnv("GRAPH_STORAGE", "memory"),
		GraphPath:            getEnv("GRAPH_PATH", "traits-graph"),
		GraphPartition:       getEnv("GRAPH_PARTITION", "main"),
		SearchMaxHops:        getEnvAsInt("SEARCH_MAX_HOPS", 8),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges
func (cfg *Config) Validate() error {
	if cfg.DBAppDatabase == "" {
		return fmt.Errorf("DB_APP_DATABASE is required")
	}
	if !cfg.IsSQLite() {
		if cfg.DBAppUser == "" {
			return fmt.Errorf("DB_APP_USER is required")
		}
		if cfg.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
	}
	if cfg.GraphStorage != "memory" && cfg.GraphStorage != "disk" {
		return fmt.Errorf("GRAPH_STORAGE must be memory or disk, got %q", cfg.GraphStorage)
	}
	if cfg.GraphPartition == "" {
		return fmt.Errorf("GRAPH_PARTITION is required")
	}
	if cfg.SearchMaxHops <= 0 {
		return fmt.Errorf("SEARCH_MAX_HOPS must be positive")
	}
	if cfg.AuthzURL != "" && cfg.AuthzClientID == "" {
		return fmt.Errorf("AUTHZ_CLIENT_ID is required when AUTHZ_URL is set")
	}
	return nil
}

// IsSQLite reports whether the ledger is a SQLite file or memory database
func (cfg *Config) IsSQLite() bool {
	return cfg.DBType == "sqlite" || cfg.DBType == "sqlite-purego"
}

// AuthEnabled reports whether routes are guarded by the Authorizer
func (cfg *Config) AuthEnabled() bool {
	return cfg.AuthzURL != ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
