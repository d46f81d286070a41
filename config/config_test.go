package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "USDT", cfg.Account.Currency)
	assert.Equal(t, 1000.0, cfg.Account.Capital)
	assert.Equal(t, "BTCUSDT", cfg.Market.Symbol)
	assert.Equal(t, 0.0006, cfg.Strategy.FeeRate)
	assert.Equal(t, 200, cfg.Strategy.WarmupBars)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"negative capital", func(c *Config) { c.Account.Capital = -1 }, "account.capital must be positive"},
		{"missing symbol", func(c *Config) { c.Market.Symbol = "" }, "market.symbol is required"},
		{"unknown exchange", func(c *Config) { c.Market.Exchange = "kraken" }, "market.exchange"},
		{"bad micro timeframe", func(c *Config) { c.Market.MicroTimeframe = "7x" }, "market.micro_timeframe"},
		{"macro not longer", func(c *Config) { c.Market.MacroTimeframe = "1m" }, "must be longer"},
		{"zero days", func(c *Config) { c.Market.Days = 0 }, "market.days must be positive"},
		{"bad timeout", func(c *Config) { c.Market.Timeout = "soon" }, "market.timeout"},
		{"negative retries", func(c *Config) { c.Market.Retries = -1 }, "market.retries"},
		{"fee rate too high", func(c *Config) { c.Strategy.FeeRate = 1 }, "strategy.fee_rate"},
		{"negative warmup", func(c *Config) { c.Strategy.WarmupBars = -5 }, "strategy.warmup_bars"},
		{"capital fraction", func(c *Config) { c.Strategy.CapitalFraction = 1.2 }, "strategy.capital_fraction"},
		{"journal type", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "trades_file and equity_file"},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateFileDataNeedsNoExchange(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Market.Exchange = ""
	cfg.Market.MicroFile = "btc-1m.csv"
	cfg.Journal = JournalConfig{Type: "none"}
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cfg.yaml", "cfg.yml", "cfg.json"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Market.Symbol = "ETHUSDT"
			cfg.Strategy.ApplyRiskScale = true
			cfg.Report.XLSX = "out.xlsx"
			require.NoError(t, cfg.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "market:\n  symbol: SOLUSDT\n  days: 7\nstrategy:\n  fee_rate: 0.001\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", cfg.Market.Symbol)
	assert.Equal(t, 7.0, cfg.Market.Days)
	assert.Equal(t, 0.001, cfg.Strategy.FeeRate)
	assert.Equal(t, "4h", cfg.Market.MacroTimeframe)
	assert.Equal(t, 1000.0, cfg.Account.Capital)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("account: [\n"), 0644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")

	invalidCfg := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidCfg, []byte("account:\n  capital: -5\n"), 0644))
	_, err = LoadFromFile(invalidCfg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBacktestConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Strategy.ApplyRiskScale = true
	bt := cfg.Backtest()
	assert.Equal(t, 1000.0, bt.StartBalance)
	assert.Equal(t, 0.0006, bt.FeeRate)
	assert.Equal(t, 200, bt.WarmupBars)
	assert.Equal(t, 100, bt.RSIWindow)
	assert.Equal(t, 0.95, bt.CapitalFraction)
	assert.Equal(t, 30.0, bt.Days)
	assert.True(t, bt.ApplyRiskScale)
	assert.NoError(t, bt.Validate())
}

func TestBacktestConfigFileDataUsesSpan(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Market.MicroFile = "micro.csv"
	bt := cfg.Backtest()
	assert.Equal(t, 0.0, bt.Days)
	assert.NoError(t, bt.Validate())
}

func TestTimeoutDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10*time.Second, MarketConfig{}.TimeoutDuration())
	assert.Equal(t, 3*time.Second, MarketConfig{Timeout: "3s"}.TimeoutDuration())
}
