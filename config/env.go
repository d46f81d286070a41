package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvSymbol   = "WATERFALL_SYMBOL"
	EnvExchange = "WATERFALL_EXCHANGE"
	EnvCapital  = "WATERFALL_CAPITAL"
	EnvFeeRate  = "WATERFALL_FEE_RATE"
	EnvDays     = "WATERFALL_DAYS"
)

// ApplyEnv loads envFile (".env" when empty) into the process environment
// and applies the WATERFALL_* overrides to cfg. A missing default .env is
// not an error; a missing explicit file is. Variables already set in the
// environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	path := envFile
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvSymbol); v != "" {
		cfg.Market.Symbol = v
	}
	if v := os.Getenv(EnvExchange); v != "" {
		cfg.Market.Exchange = v
	}
	for _, o := range []struct {
		key string
		dst *float64
	}{
		{EnvCapital, &cfg.Account.Capital},
		{EnvFeeRate, &cfg.Strategy.FeeRate},
		{EnvDays, &cfg.Market.Days},
	} {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", o.key, v, err)
		}
		*o.dst = x
	}
	return nil
}
