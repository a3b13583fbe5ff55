package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "APP_PORT", "DATABASE_URL", "JWT_SECRET", "REDIS_ADDR", "REDIS_DB", "CONNECT_RATE_PER_MINUTE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.UsesDevSecret())
	assert.NoError(t, cfg.Validate(), "the dev secret is fine outside production")
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 120, cfg.ConnectRatePerMinute)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CONNECT_RATE_PER_MINUTE", "oops")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()
	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 120, cfg.ConnectRatePerMinute, "bad numbers fall back to the default")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
}

func TestProductionRequiresRealSecret(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	assert.ErrorIs(t, cfg.Validate(), ErrDevSecret)

	t.Setenv("JWT_SECRET", "s3cr3t")
	cfg = Load()
	assert.False(t, cfg.UsesDevSecret())
	assert.NoError(t, cfg.Validate())
}
