package backtest

import (
	"time"

	"github.com/rustyeddy/waterfall/strategy"
)

// Result is the outcome of one Run.
type Result struct {
	Config Config
	Start  time.Time // first evaluated tick
	End    time.Time // last evaluated tick
	Ticks  int

	Trades []Trade
	Ledger Ledger

	// OpenPosition is set when a position is still open after the last
	// bar. It is not a trade and is not part of the summary counts.
	OpenPosition *OpenPosition

	// Equity holds the starting balance and the balance after every close.
	Equity []EquityPoint

	Summary Summary
}

type OpenPosition struct {
	Position   strategy.Position
	MarkTime   time.Time
	MarkPrice  float64
	Unrealized float64
}

type EquityPoint struct {
	Time    time.Time
	Balance float64
}

type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64 // percent
	TradesPerDay float64
	Days         float64 // Config.Days, or the evaluated span when unset
	TakeProfits  int
	StopLosses   int

	StartBalance float64
	FinalBalance float64
	NetProfit    float64
	Fees         float64
	GrossProfit  float64 // sum of winning net PnL
	GrossLoss    float64 // sum of losing net PnL, as a positive number

	// ProfitFactor is GrossProfit / GrossLoss, zero when nothing lost.
	ProfitFactor   float64
	MaxDrawdownPct float64

	Entries     int
	RegimeTicks map[strategy.Regime]int
	BiasTicks   map[strategy.Bias]int
	Rejections  map[strategy.RejectReason]int
}

type tally struct {
	entries    int
	regimes    map[strategy.Regime]int
	bias       map[strategy.Bias]int
	rejections map[strategy.RejectReason]int
}

func newTally() *tally {
	return &tally{
		regimes:    make(map[strategy.Regime]int),
		bias:       make(map[strategy.Bias]int),
		rejections: make(map[strategy.RejectReason]int),
	}
}

func (t *tally) add(ev Event) {
	t.regimes[ev.Regime]++
	t.bias[ev.Bias]++
	if ev.Opened != nil {
		t.entries++
	}
	if ev.Reject != strategy.RejectNone {
		t.rejections[ev.Reject]++
	}
}

func summarize(r *Result, t *tally) Summary {
	s := Summary{
		Trades:       len(r.Trades),
		StartBalance: r.Ledger.StartBalance,
		FinalBalance: r.Ledger.Balance,
		Fees:         r.Ledger.Fees,
		Entries:      t.entries,
		RegimeTicks:  t.regimes,
		BiasTicks:    t.bias,
		Rejections:   t.rejections,
	}
	s.NetProfit = s.FinalBalance - s.StartBalance

	for _, tr := range r.Trades {
		if tr.Win() {
			s.Wins++
			s.GrossProfit += tr.NetPnL
		} else {
			s.Losses++
			s.GrossLoss -= tr.NetPnL
		}
		switch tr.Kind {
		case strategy.ExitTakeProfit:
			s.TakeProfits++
		case strategy.ExitStopLoss:
			s.StopLosses++
		}
	}

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}

	days := r.Config.Days
	if days <= 0 {
		days = r.Span().Hours() / 24
	}
	s.Days = days
	if days > 0 {
		s.TradesPerDay = float64(s.Trades) / days
	}

	s.MaxDrawdownPct = MaxDrawdownPct(r.Equity)
	return s
}

// MaxDrawdownPct is the largest peak to trough fall of the balance curve,
// in percent of the peak.
func MaxDrawdownPct(curve []EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, p := range curve {
		if p.Balance > peak {
			peak = p.Balance
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Balance) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}
