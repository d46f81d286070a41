package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/pkg/id"
)

// TradeRecord is a closed simulated trade as it is persisted.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	GrossPL    float64
	Fees       float64
	RealizedPL float64
	Balance    float64
	Reason     string // STOP_LOSS or TAKE_PROFIT
	Regime     string
}

// EquitySnapshot is the account balance at a point in market time.
type EquitySnapshot struct {
	RunID   string
	Time    time.Time
	Balance float64
	Equity  float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// NewTradeRecord converts an engine trade. The trade ID is a ULID stamped
// with the exit bar time.
func NewTradeRecord(runID, symbol string, t backtest.Trade) TradeRecord {
	return TradeRecord{
		TradeID:    id.At(t.ExitTime),
		RunID:      runID,
		Symbol:     symbol,
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		GrossPL:    t.GrossPnL,
		Fees:       t.Fees,
		RealizedPL: t.NetPnL,
		Balance:    t.Balance,
		Reason:     t.Kind.Name(),
		Regime:     t.Regime.String(),
	}
}

// RecordResult writes every trade and every point of the balance curve of
// a finished run. An open position at the end adds one last snapshot with
// its mark-to-market equity.
func RecordResult(j Journal, runID, symbol string, res *backtest.Result) error {
	for _, t := range res.Trades {
		if err := j.RecordTrade(NewTradeRecord(runID, symbol, t)); err != nil {
			return fmt.Errorf("record trade %d: %w", t.ID, err)
		}
	}
	for _, p := range res.Equity {
		snap := EquitySnapshot{RunID: runID, Time: p.Time, Balance: p.Balance, Equity: p.Balance}
		if err := j.RecordEquity(snap); err != nil {
			return fmt.Errorf("record equity %s: %w", p.Time.Format(time.RFC3339), err)
		}
	}
	if op := res.OpenPosition; op != nil {
		snap := EquitySnapshot{
			RunID:   runID,
			Time:    op.MarkTime,
			Balance: res.Ledger.Balance,
			Equity:  res.Ledger.Balance + op.Unrealized,
		}
		if err := j.RecordEquity(snap); err != nil {
			return fmt.Errorf("record open equity: %w", err)
		}
	}
	return nil
}
