package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/market"
	"github.com/rustyeddy/waterfall/strategy"
)

var ErrInvalid = errors.New("invalid config")

// Config is the complete backtest configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Report   ReportConfig   `json:"report" yaml:"report"`
}

type AccountConfig struct {
	Capital  float64 `json:"capital" yaml:"capital"`
	Currency string  `json:"currency" yaml:"currency"`
}

// MarketConfig selects the data. When MicroFile is set the micro series is
// read from CSV instead of the exchange, likewise MacroFile.
type MarketConfig struct {
	Exchange       string  `json:"exchange" yaml:"exchange"` // "binance" or "bybit"
	Symbol         string  `json:"symbol" yaml:"symbol"`
	MicroTimeframe string  `json:"micro_timeframe" yaml:"micro_timeframe"`
	MacroTimeframe string  `json:"macro_timeframe" yaml:"macro_timeframe"`
	Days           float64 `json:"days" yaml:"days"`
	MicroFile      string  `json:"micro_file,omitempty" yaml:"micro_file,omitempty"`
	MacroFile      string  `json:"macro_file,omitempty" yaml:"macro_file,omitempty"`

	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Retries           int     `json:"retries,omitempty" yaml:"retries,omitempty"`
	Timeout           string  `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "10s"
}

type StrategyConfig struct {
	FeeRate         float64 `json:"fee_rate" yaml:"fee_rate"`
	WarmupBars      int     `json:"warmup_bars" yaml:"warmup_bars"`
	RSIWindow       int     `json:"rsi_window" yaml:"rsi_window"`
	CapitalFraction float64 `json:"capital_fraction" yaml:"capital_fraction"`
	ApplyRiskScale  bool    `json:"apply_risk_scale" yaml:"apply_risk_scale"`
}

type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type ReportConfig struct {
	XLSX    string `json:"xlsx,omitempty" yaml:"xlsx,omitempty"`
	Org     string `json:"org,omitempty" yaml:"org,omitempty"`
	Metrics string `json:"metrics,omitempty" yaml:"metrics,omitempty"` // Prometheus textfile
}

// LoadFromFile loads a YAML or JSON config and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	data, err := c.Marshal(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Marshal encodes the config in the format implied by path.
func (c *Config) Marshal(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return invalid("account.currency is required")
	}
	if c.Account.Capital <= 0 {
		return invalid("account.capital must be positive")
	}

	m := c.Market
	if m.Symbol == "" {
		return invalid("market.symbol is required")
	}
	switch m.Exchange {
	case "binance", "bybit":
	default:
		if m.MicroFile == "" {
			return invalid("market.exchange must be 'binance' or 'bybit' unless micro_file is set")
		}
	}
	micro, err := market.ParseTimeframe(m.MicroTimeframe)
	if err != nil {
		return invalid("market.micro_timeframe: %v", err)
	}
	macro, err := market.ParseTimeframe(m.MacroTimeframe)
	if err != nil {
		return invalid("market.macro_timeframe: %v", err)
	}
	if macro <= micro {
		return invalid("market.macro_timeframe must be longer than micro_timeframe")
	}
	if m.Days <= 0 {
		return invalid("market.days must be positive")
	}
	if m.RequestsPerSecond < 0 {
		return invalid("market.requests_per_second must not be negative")
	}
	if m.Retries < 0 {
		return invalid("market.retries must not be negative")
	}
	if m.Timeout != "" {
		if _, err := time.ParseDuration(m.Timeout); err != nil {
			return invalid("market.timeout: %v", err)
		}
	}

	s := c.Strategy
	if s.FeeRate < 0 || s.FeeRate >= 1 {
		return invalid("strategy.fee_rate must be between 0 and 1")
	}
	if s.WarmupBars < 0 {
		return invalid("strategy.warmup_bars must not be negative")
	}
	if s.RSIWindow < 0 {
		return invalid("strategy.rsi_window must not be negative")
	}
	if s.CapitalFraction < 0 || s.CapitalFraction > 1 {
		return invalid("strategy.capital_fraction must be between 0 and 1")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return invalid("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return invalid("journal db_path required for SQLite type")
		}
	default:
		return invalid("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default mirrors the reference run: 30 days of BTCUSDT 1m bars against
// 4h context on Binance, 1000 USDT, 0.06% per side.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Capital:  1000,
			Currency: "USDT",
		},
		Market: MarketConfig{
			Exchange:          "binance",
			Symbol:            "BTCUSDT",
			MicroTimeframe:    "1m",
			MacroTimeframe:    "4h",
			Days:              30,
			RequestsPerSecond: 5,
			Retries:           3,
			Timeout:           "10s",
		},
		Strategy: StrategyConfig{
			FeeRate:         0.0006,
			WarmupBars:      backtest.DefaultWarmupBars,
			RSIWindow:       strategy.RSIBaselineWindow,
			CapitalFraction: strategy.CapitalFraction,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./waterfall.db",
		},
	}
}

// Backtest returns the engine settings. Days is only carried for exchange
// lookbacks; bars read from a file are measured by their own span.
func (c *Config) Backtest() backtest.Config {
	days := c.Market.Days
	if c.Market.MicroFile != "" {
		days = 0
	}
	return backtest.Config{
		StartBalance:    c.Account.Capital,
		FeeRate:         c.Strategy.FeeRate,
		WarmupBars:      c.Strategy.WarmupBars,
		RSIWindow:       c.Strategy.RSIWindow,
		CapitalFraction: c.Strategy.CapitalFraction,
		ApplyRiskScale:  c.Strategy.ApplyRiskScale,
		Days:            days,
	}
}

// TimeoutDuration returns the HTTP timeout, 10s when unset.
func (m MarketConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(m.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
