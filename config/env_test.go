package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests touch the process environment and cannot run in parallel.

func TestApplyEnvFromFile(t *testing.T) {
	for _, k := range []string{EnvSymbol, EnvExchange, EnvCapital, EnvFeeRate, EnvDays} {
		t.Setenv(k, "")
	}

	path := filepath.Join(t.TempDir(), "test.env")
	data := "WATERFALL_SYMBOL=ETHUSDT\nWATERFALL_CAPITAL=2500\nWATERFALL_DAYS=14\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	// godotenv does not override variables that are already set, even to
	// the empty string, so clear them completely.
	for _, k := range []string{EnvSymbol, EnvCapital, EnvDays} {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, path))
	assert.Equal(t, "ETHUSDT", cfg.Market.Symbol)
	assert.Equal(t, 2500.0, cfg.Account.Capital)
	assert.Equal(t, 14.0, cfg.Market.Days)
	assert.Equal(t, "binance", cfg.Market.Exchange)
	assert.Equal(t, 0.0006, cfg.Strategy.FeeRate)
}

func TestApplyEnvProcessOverrides(t *testing.T) {
	t.Setenv(EnvExchange, "bybit")
	t.Setenv(EnvFeeRate, "0.001")
	t.Setenv(EnvSymbol, "")
	t.Setenv(EnvCapital, "")
	t.Setenv(EnvDays, "")
	t.Chdir(t.TempDir()) // no .env here

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, ""))
	assert.Equal(t, "bybit", cfg.Market.Exchange)
	assert.Equal(t, 0.001, cfg.Strategy.FeeRate)
	assert.Equal(t, "BTCUSDT", cfg.Market.Symbol)
}

func TestApplyEnvErrors(t *testing.T) {
	t.Setenv(EnvCapital, "lots")
	t.Chdir(t.TempDir())

	err := ApplyEnv(Default(), filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "load env file")

	err = ApplyEnv(Default(), "")
	assert.ErrorContains(t, err, EnvCapital)
}
