package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "host=localhost port=5432 user=wellness password=wellness dbname=wellnessdb sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("JWT_EXPIRY", "90m")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.Database.DSN())
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiry)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_RequiresSecretAndKnownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("AUTOSAVE_DEBOUNCE", "2s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.DebounceDelay)
	assert.Equal(t, 30*time.Second, cfg.BackupInterval)

	t.Setenv("AUTOSAVE_BACKUP_INTERVAL", "0s")
	_, err = LoadClient()
	assert.Error(t, err)
}
