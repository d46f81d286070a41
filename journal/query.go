package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades of all runs whose close_time is
// within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(context.Background(), `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
}

func (j *SQLite) ListEquityBetween(runID string, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, balance, equity
		FROM equity
		WHERE run_id = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, runID, start, end)
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

// TradeStats aggregates realized PnL for one run.
type TradeStats struct {
	Trades       int
	Wins         int
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
}

func (j *SQLite) RunTradeStats(runID string) (TradeStats, error) {
	var s TradeStats
	err := j.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN realized_pl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN realized_pl > 0 THEN realized_pl ELSE 0 END), 0),
			COALESCE(-SUM(CASE WHEN realized_pl <= 0 THEN realized_pl ELSE 0 END), 0)
		FROM trades
		WHERE run_id = ?`, runID).Scan(&s.Trades, &s.Wins, &s.GrossProfit, &s.GrossLoss)
	if err != nil {
		return TradeStats{}, err
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s, nil
}
