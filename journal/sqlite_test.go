package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/strategy"
)

var (
	t0 = time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	t1 = t0.Add(90 * time.Minute)
	t2 = t0.Add(5 * time.Hour)
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func testResult() *backtest.Result {
	cfg := backtest.DefaultConfig()
	cfg.Days = 1
	trades := []backtest.Trade{
		{
			ID: 1, EntryTime: t0, ExitTime: t1, Kind: strategy.ExitTakeProfit,
			EntryPrice: 100, ExitPrice: 104, Quantity: 9.5,
			GrossPnL: 38, Fees: 1.2, NetPnL: 36.8, Balance: 1036.8, Regime: strategy.RegimeTrending,
		},
		{
			ID: 2, EntryTime: t1.Add(time.Minute), ExitTime: t2, Kind: strategy.ExitStopLoss,
			EntryPrice: 105, ExitPrice: 103, Quantity: 9.3,
			GrossPnL: -18.6, Fees: 1.1, NetPnL: -19.7, Balance: 1017.1, Regime: strategy.RegimeNormal,
		},
	}
	res := &backtest.Result{
		Config: cfg,
		Start:  t0,
		End:    t2.Add(time.Hour),
		Ticks:  400,
		Trades: trades,
		Ledger: backtest.Ledger{StartBalance: 1000, Balance: 1017.1, Trades: trades, Fees: 2.3},
		Equity: []backtest.EquityPoint{{Time: t0, Balance: 1000}, {Time: t1, Balance: 1036.8}, {Time: t2, Balance: 1017.1}},
		Summary: backtest.Summary{
			Trades: 2, Wins: 1, Losses: 1, WinRate: 50, TradesPerDay: 2, Days: 1,
			StartBalance: 1000, FinalBalance: 1017.1, NetProfit: 17.1, Fees: 2.3,
			GrossProfit: 36.8, GrossLoss: 19.7, ProfitFactor: 36.8 / 19.7, MaxDrawdownPct: 1.9,
		},
	}
	return res
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["backtest_runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R", Time: t0, Balance: 1, Equity: 1}))
	require.NoError(t, j.Close())

	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	eq, err := j.ListEquityByRunID(context.Background(), "R")
	require.NoError(t, err)
	assert.Len(t, eq, 1)
}

func TestSQLiteRecordResult(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	res := testResult()
	require.NoError(t, RecordResult(j, "RUN1", "BTCUSDT", res))

	trades, err := j.ListTradesByRunID(ctx, "RUN1")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	tp := trades[0]
	assert.Len(t, tp.TradeID, 26)
	assert.Equal(t, "RUN1", tp.RunID)
	assert.Equal(t, "BTCUSDT", tp.Symbol)
	assert.Equal(t, "TAKE_PROFIT", tp.Reason)
	assert.Equal(t, "TRENDING", tp.Regime)
	assert.InDelta(t, 9.5, tp.Quantity, 1e-9)
	assert.InDelta(t, 104.0, tp.ExitPrice, 1e-9)
	assert.InDelta(t, 36.8, tp.RealizedPL, 1e-9)
	assert.True(t, tp.OpenTime.Equal(t0))
	assert.True(t, tp.CloseTime.Equal(t1))

	assert.Equal(t, "STOP_LOSS", trades[1].Reason)

	got, err := j.GetTrade(tp.TradeID)
	require.NoError(t, err)
	assert.Equal(t, tp, got)

	eq, err := j.ListEquityByRunID(ctx, "RUN1")
	require.NoError(t, err)
	require.Len(t, eq, 3)
	assert.InDelta(t, 1017.1, eq[2].Balance, 1e-9)

	eq, err = j.ListEquityBetween("RUN1", t1, t2)
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.True(t, eq[0].Time.Equal(t1))

	between, err := j.ListTradesClosedBetween(t0, t2)
	require.NoError(t, err)
	assert.Len(t, between, 1)

	stats, err := j.RunTradeStats("RUN1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, 1, stats.Wins)
	assert.InDelta(t, 36.8/19.7, stats.ProfitFactor, 1e-9)
}

func TestSQLiteRecordResultOpenPosition(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	res := testResult()
	res.OpenPosition = &backtest.OpenPosition{MarkTime: t2.Add(time.Hour), MarkPrice: 110, Unrealized: 12.5}
	require.NoError(t, RecordResult(j, "RUN2", "BTCUSDT", res))

	eq, err := j.ListEquityByRunID(context.Background(), "RUN2")
	require.NoError(t, err)
	require.Len(t, eq, 4)
	last := eq[3]
	assert.InDelta(t, 1017.1, last.Balance, 1e-9)
	assert.InDelta(t, 1029.6, last.Equity, 1e-9)
}

func TestSQLiteBacktestRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	run := NewBacktestRun("RUN1", testResult())
	run.Exchange = "binance"
	run.Symbol = "BTCUSDT"
	run.MicroTimeframe = "1m"
	run.MacroTimeframe = "4h"
	run.Dataset = "btc.csv"
	run.Config = []byte("account:\n  capital: 1000\n")
	run.Created = t0
	require.NoError(t, j.RecordBacktest(ctx, run))

	older := NewBacktestRun("RUN0", testResult())
	older.Created = t0.Add(-time.Hour)
	require.NoError(t, j.RecordBacktest(ctx, older))

	got, err := j.GetBacktestRun(ctx, "RUN1")
	require.NoError(t, err)
	assert.Equal(t, "binance", got.Exchange)
	assert.Equal(t, "4h", got.MacroTimeframe)
	assert.Equal(t, run.Config, got.Config)
	assert.Equal(t, 2, got.Trades)
	assert.InDelta(t, 1.71, got.ReturnPct, 1e-9)
	assert.True(t, got.Start.Equal(t0))
	assert.True(t, got.Created.Equal(t0))

	runs, err := j.ListBacktestRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "RUN1", runs[0].RunID)
	assert.Equal(t, "RUN0", runs[1].RunID)

	runs, err = j.ListBacktestRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = j.GetBacktestRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteExportBacktestOrg(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	res := testResult()
	run := NewBacktestRun("RUN1", res)
	run.Symbol = "BTCUSDT"
	require.NoError(t, j.RecordRun(ctx, run, res))

	org, err := j.ExportBacktestOrg(ctx, "RUN1")
	require.NoError(t, err)
	assert.Contains(t, org, "* BACKTEST: Waterfall BTCUSDT")
	assert.Contains(t, org, ":RUN_ID:      RUN1")
	assert.Contains(t, org, "** Trades")
	assert.Contains(t, org, "TAKE_PROFIT")
	assert.Contains(t, org, "STOP_LOSS")

	_, err = j.ExportBacktestOrg(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteRecordRunRollsBack(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// the first trade (TAKE_PROFIT) goes in, the second one fails
	_, err = db.Exec(`CREATE TRIGGER reject_stop_loss BEFORE INSERT ON trades
		WHEN NEW.reason = 'STOP_LOSS'
		BEGIN SELECT RAISE(ABORT, 'stop loss rejected'); END`)
	require.NoError(t, err)

	res := testResult()
	run := NewBacktestRun("RUN1", res)
	run.Symbol = "BTCUSDT"
	err = j.RecordRun(ctx, run, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop loss rejected")

	_, err = j.GetBacktestRun(ctx, "RUN1")
	assert.ErrorIs(t, err, ErrRunNotFound)

	trades, err := j.ListTradesByRunID(ctx, "RUN1")
	require.NoError(t, err)
	assert.Empty(t, trades)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM equity`).Scan(&n))
	assert.Zero(t, n)
}
