package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Read configuration from environment", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5433")
		t.Setenv("DATABASE_SCHEMA", "")
		t.Setenv("DATABASE_SSL_MODE", "")

		config, err := NewDatabaseConfiguration()
		require.NoError(t, err)
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "5433", config.Port)
		assert.Equal(t, "public", config.Schema, "Expected default schema")
		assert.Equal(t, "disable", config.SSLMode, "Expected default ssl mode")
		assert.Contains(t, config.DSN(), "port=5433")
		assert.Contains(t, config.DSN(), "search_path=public")
	})

	t.Run("Missing host is rejected", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")
		t.Setenv("DATABASE_HOST", "")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("Non numeric port is rejected", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "postgres")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	})
}

func TestDatabaseNil(t *testing.T) {
	var db *Database
	assert.NoError(t, db.Close(), "Expected closing a nil database to be a no-op")
	assert.Error(t, db.CheckHealth(t.Context()))
}

func TestCheckConnection(t *testing.T) {
	t.Run("Unreachable database", func(t *testing.T) {
		config := &DatabaseConfiguration{
			Host:     "127.0.0.1",
			Port:     "1",
			Database: "dealgraph",
			Username: "postgres",
		}
		require.NoError(t, config.Validate())

		_, err := CheckConnection(t.Context(), config)
		assert.Error(t, err)
	})
}
