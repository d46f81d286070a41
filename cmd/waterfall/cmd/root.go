package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rustyeddy/waterfall/config"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "waterfall",
	Short: "Deterministic backtester for the waterfall crypto scalping strategy",
	Long: `Waterfall replays a 1 minute crypto series against a 4 hour context
series and simulates the regime adaptive waterfall strategy, one position at
a time, with fees and a trailing stop.

It provides tools for:
  - Downloading klines from Binance or Bybit
  - Running backtests from the exchange or from CSV files
  - Console, spreadsheet and Org-mode reports
  - Keeping a SQLite journal of runs and trades`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		zerolog.TimeFieldFormat = time.RFC3339
		w := cmd.ErrOrStderr()
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isTerminal(w)}).
			Level(lvl).With().Timestamp().Logger()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file, YAML or JSON (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with WATERFALL_* overrides (default .env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
}

// loadConfig reads --config (or the defaults), applies the environment and
// validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func mkdirFor(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
