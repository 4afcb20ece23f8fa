package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bastion", cfg.Database.Name)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Empty(t, cfg.Redis.Addr)

	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.SuspensionDuration)
	assert.Equal(t, 100, cfg.Auth.MaxFailedAttemptsIP)
	assert.Equal(t, 15*time.Minute, cfg.Auth.IPLockoutDuration)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_WeakJWTSecretRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresLongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-twenty-one-chars")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("ENV", "production")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("SUSPENSION_DURATION", "30m")
	t.Setenv("MAX_FAILED_ATTEMPTS_IP", "50")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SuspensionDuration)
	assert.Equal(t, 50, cfg.Auth.MaxFailedAttemptsIP)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw", Name: "bastion", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=bastion sslmode=require", cfg.DSN())
}
