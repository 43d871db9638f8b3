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

	assert.Equal(t, "NexusPlan", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "nexusplan.db", cfg.Storage.Path)
	assert.True(t, cfg.Sync.Enabled)
	assert.True(t, cfg.Sync.BestEffort)
	assert.Equal(t, "nexusplan", cfg.Database.Name)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, "nexusplan-api", cfg.JWT.Issuer)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/tmp/planner.db")
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/planner.db", cfg.Storage.Path)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidateRejectsProductionDefaultSecret(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "production")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "planner",
		Password: "pw",
		Name:     "nexusplan",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=planner password=pw dbname=nexusplan sslmode=require",
		cfg.GetDSN(),
	)
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := AppConfig{Environment: "development"}
	prod := AppConfig{Environment: "production"}

	assert.True(t, dev.IsDevelopment())
	assert.False(t, dev.IsProduction())
	assert.True(t, prod.IsProduction())
}
