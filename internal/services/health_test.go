package services

import (
	"testing"

	"github.com/localnerve/traits/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	_, db, graph := testTraits(t)
	cfg := &config.Config{
		DBType:         "sqlite-purego",
		DBAppDatabase:  ":memory:",
		GraphStorage:   "memory",
		GraphPartition: "main",
	}

	result := HealthCheck(cfg, db, graph)
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Graph)
	assert.Equal(t, "disabled", result.Authorizer)
	assert.Equal(t, "sqlite-purego", result.Details["database_type"])
	assert.Empty(t, result.ErrorMessage)
}

func TestHealthCheckUnreachable(t *testing.T) {
	_, db, graph := testTraits(t)
	cfg := &config.Config{
		DBType:        "sqlite-purego",
		DBAppDatabase: ":memory:",
		// nothing listens on the discard port
		AuthzURL:      "http://127.0.0.1:9",
		AuthzClientID: "client",
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result := HealthCheck(cfg, db, graph)
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unreachable", result.Database)
	assert.Equal(t, "unreachable", result.Authorizer)
	assert.Equal(t, "ok", result.Graph)
	assert.Contains(t, result.ErrorMessage, "Database ping failed")
	assert.Contains(t, result.ErrorMessage, "Authorizer ping failed")
	assert.Contains(t, result.Details, "authorizer_error")
}
