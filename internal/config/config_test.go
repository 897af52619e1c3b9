package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10, cfg.Batch.MaxSize)
	assert.Equal(t, time.Second, cfg.Batch.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Lock.Expiry)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, int64(4), cfg.Bulkhead.MaxConcurrent)
	assert.False(t, cfg.SeedDemo)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BANKING_HTTP_PORT", "9090")
	t.Setenv("BANKING_BATCH_MAX_SIZE", "25")
	t.Setenv("BANKING_DATABASE_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 25, cfg.Batch.MaxSize)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Name:     "banking",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=banking sslmode=disable",
		db.DSN())
}
