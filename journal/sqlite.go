package journal

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/waterfall/backtest"
)

var ErrRunNotFound = errors.New("backtest run not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	return insertTrade(context.Background(), j.db, t)
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	return insertEquity(context.Background(), j.db, e)
}

func insertTrade(ctx context.Context, ex execer, t TradeRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, run_id, symbol, quantity, entry_price, exit_price, open_time, close_time,
		 gross_pl, fees, realized_pl, balance, reason, regime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.OpenTime, t.CloseTime,
		t.GrossPL, t.Fees, t.RealizedPL, t.Balance, t.Reason, t.Regime,
	)
	return err
}

func insertEquity(ctx context.Context, ex execer, e EquitySnapshot) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO equity (run_id, time, balance, equity)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Time, e.Balance, e.Equity,
	)
	return err
}

const runColumns = `run_id, created, exchange, symbol, micro_timeframe, macro_timeframe, dataset, config,
	fee_rate, start_time, end_time, days, trades, wins, losses, start_balance, end_balance,
	net_pl, return_pct, win_rate, trades_per_day, profit_factor, max_dd_pct, fees,
	open_unrealized, org_path`

func insertRun(ctx context.Context, ex execer, r BacktestRun) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Exchange, r.Symbol, r.MicroTimeframe, r.MacroTimeframe, r.Dataset, r.Config,
		r.FeeRate, r.Start, r.End, r.Days, r.Trades, r.Wins, r.Losses, r.StartBalance, r.EndBalance,
		r.NetPL, r.ReturnPct, r.WinRate, r.TradesPerDay, r.ProfitFactor, r.MaxDDPct, r.Fees,
		r.OpenUnrealized, r.OrgPath,
	)
	if err != nil {
		return fmt.Errorf("record backtest %s: %w", r.RunID, err)
	}
	return nil
}

func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	return insertRun(ctx, j.db, r)
}

// RecordRun stores the run row together with its trades and balance curve
// in one transaction. Either all of it lands or none of it does.
func (j *SQLite) RecordRun(ctx context.Context, r BacktestRun, res *backtest.Result) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertRun(ctx, tx, r); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := RecordResult(txJournal{ctx: ctx, tx: tx}, r.RunID, r.Symbol, res); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record backtest %s: %w", r.RunID, err)
	}
	return tx.Commit()
}

// txJournal writes into an open transaction. Close is a no-op; the owner
// commits or rolls back.
type txJournal struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t txJournal) RecordTrade(r TradeRecord) error     { return insertTrade(t.ctx, t.tx, r) }
func (t txJournal) RecordEquity(e EquitySnapshot) error { return insertEquity(t.ctx, t.tx, e) }
func (t txJournal) Close() error                        { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (BacktestRun, error) {
	var r BacktestRun
	err := s.Scan(
		&r.RunID, &r.Created, &r.Exchange, &r.Symbol, &r.MicroTimeframe, &r.MacroTimeframe, &r.Dataset, &r.Config,
		&r.FeeRate, &r.Start, &r.End, &r.Days, &r.Trades, &r.Wins, &r.Losses, &r.StartBalance, &r.EndBalance,
		&r.NetPL, &r.ReturnPct, &r.WinRate, &r.TradesPerDay, &r.ProfitFactor, &r.MaxDDPct, &r.Fees,
		&r.OpenUnrealized, &r.OrgPath,
	)
	return r, err
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListBacktestRuns returns the most recent runs first. limit <= 0 means all.
func (j *SQLite) ListBacktestRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM backtest_runs ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const tradeColumns = `trade_id, run_id, symbol, quantity, entry_price, exit_price, open_time, close_time,
	gross_pl, fees, realized_pl, balance, reason, regime`

func scanTrade(s rowScanner) (TradeRecord, error) {
	var t TradeRecord
	err := s.Scan(
		&t.TradeID, &t.RunID, &t.Symbol, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.OpenTime, &t.CloseTime,
		&t.GrossPL, &t.Fees, &t.RealizedPL, &t.Balance, &t.Reason, &t.Regime,
	)
	return t, err
}

func (j *SQLite) queryTrades(ctx context.Context, query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades WHERE run_id = ? ORDER BY close_time ASC, trade_id ASC`, runID)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, balance, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Balance, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportBacktestOrg loads a run and its trades and returns the Org text.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := run.WriteOrg(&buf); err != nil {
		return "", err
	}
	if len(trades) > 0 {
		buf.WriteString("\n** Trades\n")
		buf.WriteString(FormatTradesOrg(trades))
	}
	return buf.String(), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
