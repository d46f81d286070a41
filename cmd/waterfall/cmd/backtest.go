package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/config"
	"github.com/rustyeddy/waterfall/journal"
	"github.com/rustyeddy/waterfall/metrics"
	"github.com/rustyeddy/waterfall/pkg/id"
	"github.com/rustyeddy/waterfall/report"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the waterfall strategy over historical bars",
	Long: `Backtest fetches (or reads) the micro and macro series, computes the
indicators and replays the strategy bar by bar.

Data comes from market.micro_file / market.macro_file when set, otherwise
from the configured exchange over the last market.days days.

Examples:
  waterfall backtest
  waterfall backtest --micro data/btc_1m.csv --macro data/btc_4h.csv
  waterfall backtest -c waterfall.yaml --xlsx out/run.xlsx --trades 20`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btMicro   string
	btMacro   string
	btSymbol  string
	btDays    float64
	btXLSX    string
	btOrg     string
	btMetrics string
	btTrades  int
	btJournal string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btMicro, "micro", "", "micro bar CSV (time,open,high,low,close,volume)")
	backtestCmd.Flags().StringVar(&btMacro, "macro", "", "macro bar CSV")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "s", "", "symbol override")
	backtestCmd.Flags().Float64Var(&btDays, "days", 0, "lookback days override")
	backtestCmd.Flags().StringVar(&btXLSX, "xlsx", "", "write a spreadsheet report")
	backtestCmd.Flags().StringVar(&btOrg, "org", "", "write an Org-mode run entry")
	backtestCmd.Flags().StringVar(&btMetrics, "metrics", "", "write Prometheus metrics in textfile format")
	backtestCmd.Flags().IntVarP(&btTrades, "trades", "n", 10, "closed trades to print (0 = all, -1 = none)")
	backtestCmd.Flags().StringVar(&btJournal, "journal", "", "journal type override (csv, sqlite, none)")
}

func applyBacktestFlags(cfg *config.Config) error {
	if btMicro != "" {
		cfg.Market.MicroFile = btMicro
	}
	if btMacro != "" {
		cfg.Market.MacroFile = btMacro
	}
	if btSymbol != "" {
		cfg.Market.Symbol = btSymbol
	}
	if btDays > 0 {
		cfg.Market.Days = btDays
	}
	if btXLSX != "" {
		cfg.Report.XLSX = btXLSX
	}
	if btOrg != "" {
		cfg.Report.Org = btOrg
	}
	if btMetrics != "" {
		cfg.Report.Metrics = btMetrics
	}
	if btJournal != "" {
		cfg.Journal.Type = btJournal
	}
	return cfg.Validate()
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyBacktestFlags(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	rec := metrics.NewRecorder(cfg.Market.Symbol)

	micro, macro, dataset, err := loadBars(ctx, cfg, rec)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	micro, macro = backtest.Prepare(micro, macro)

	eng := backtest.NewEngine(cfg.Backtest(), backtest.WithLogger(logger), backtest.WithObserver(rec))
	res, err := eng.Run(ctx, micro, macro)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	runID := id.New()
	out := cmd.OutOrStdout()
	meta := report.Meta{
		RunID:          runID,
		Exchange:       cfg.Market.Exchange,
		Symbol:         cfg.Market.Symbol,
		MicroTimeframe: cfg.Market.MicroTimeframe,
		MacroTimeframe: cfg.Market.MacroTimeframe,
		Currency:       cfg.Account.Currency,
	}
	report.WriteSummary(out, meta, res)
	if btTrades >= 0 && len(res.Trades) > 0 {
		report.WriteTrades(out, res.Trades, btTrades)
	}

	if path := cfg.Report.XLSX; path != "" {
		if err := report.WriteXLSX(path, meta, res); err != nil {
			return fmt.Errorf("xlsx report: %w", err)
		}
		logger.Info().Str("path", path).Msg("spreadsheet written")
	}

	run := journal.NewBacktestRun(runID, res)
	run.Exchange = cfg.Market.Exchange
	run.Symbol = cfg.Market.Symbol
	run.MicroTimeframe = cfg.Market.MicroTimeframe
	run.MacroTimeframe = cfg.Market.MacroTimeframe
	run.Dataset = dataset
	if run.Config, err = cfg.Marshal("config.yaml"); err != nil {
		return err
	}

	if path := cfg.Report.Org; path != "" {
		if err := mkdirFor(path); err != nil {
			return err
		}
		run.OrgPath = path
		if err := run.WriteOrgFile(); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		logger.Info().Str("path", path).Msg("org entry written")
	}

	if err := recordJournal(ctx, cfg, run, res); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	if path := cfg.Report.Metrics; path != "" {
		if err := mkdirFor(path); err != nil {
			return err
		}
		if err := rec.WriteTextfile(path); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func recordJournal(ctx context.Context, cfg *config.Config, run journal.BacktestRun, res *backtest.Result) error {
	jc := cfg.Journal
	switch jc.Type {
	case "sqlite":
		if err := mkdirFor(jc.DBPath); err != nil {
			return err
		}
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return err
		}
		defer j.Close()
		if err := j.RecordRun(ctx, run, res); err != nil {
			return err
		}
		logger.Info().Str("db", jc.DBPath).Str("run", run.RunID).Int("trades", len(res.Trades)).Msg("run journaled")
	case "csv":
		j, err := journal.NewCSV(jc.TradesFile, jc.EquityFile)
		if err != nil {
			return err
		}
		if err := journal.RecordResult(j, run.RunID, run.Symbol, res); err != nil {
			_ = j.Close()
			return err
		}
		if err := j.Close(); err != nil {
			return err
		}
		logger.Info().Str("trades", jc.TradesFile).Str("equity", jc.EquityFile).Msg("run journaled")
	}
	return nil
}
