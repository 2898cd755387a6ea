package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logger.LogLevel)
	assert.Equal(t, "0.1", cfg.Receipt.TaxRate.String())
	assert.Equal(t, "Al-Khwarizmi Pharmacy", cfg.Receipt.StoreName)
	assert.False(t, cfg.Seed.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("PHARMACY_HTTP_ADDR", ":9090")
	t.Setenv("PHARMACY_LOG_LEVEL", "debug")
	t.Setenv("PHARMACY_SEED", "true")
	t.Setenv("PHARMACY_SESSION_TTL", "5m")

	cfg, err := Load([]string{"-l", "warn", "-tax-rate", "0.05"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Logger.LogLevel, "flag wins over env")
	assert.Equal(t, "0.05", cfg.Receipt.TaxRate.String())
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load([]string{"-tax-rate", "ten"})
	assert.Error(t, err)
	_, err = Load([]string{"-tax-rate", "1.5"})
	assert.Error(t, err)
	_, err = Load([]string{"-store", "sqlite"})
	assert.Error(t, err)
	_, err = Load([]string{"-store", "postgres"})
	assert.Error(t, err)
	_, err = Load([]string{"-session-ttl", "0s"})
	assert.Error(t, err)
}
