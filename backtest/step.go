package backtest

import (
	"time"

	"github.com/rustyeddy/waterfall/market"
	"github.com/rustyeddy/waterfall/strategy"
)

// Tick is what the clock hands to Step for one micro bar.
type Tick struct {
	Index int
	Bar   market.Bar
	Prev  market.Bar

	// Macro is the latest macro bar strictly before Bar.Time, nil if none.
	Macro        *market.Bar
	MacroHistory int

	RSIThreshold float64
}

// Rules are the per-run knobs Step needs.
type Rules struct {
	FeeRate         float64
	CapitalFraction float64
	ApplyRiskScale  bool
}

// Event records what Step did on one tick.
type Event struct {
	Index  int
	Time   time.Time
	State  State // before the tick
	Regime strategy.Regime
	Params strategy.Params
	Bias   strategy.Bias

	// Flat ticks.
	Entry  *strategy.EntryDecision
	Reject strategy.RejectReason
	Opened *strategy.Position

	// Open ticks.
	Transition strategy.Transition
	Trade      *Trade
}

// Step is the per-tick transition. Regime and parameters are recomputed
// from the bar every time. An open position is only ever stepped; a flat
// account is only ever evaluated for entry, so a position closed on this
// tick cannot be replaced before the next one.
func Step(l Ledger, tk Tick, r Rules) (Ledger, Event) {
	b := tk.Bar
	regime := strategy.ClassifyRegime(b.ADX, b.ATR, b.ATRSMA)
	ev := Event{
		Index:  tk.Index,
		Time:   b.Time,
		State:  l.State(),
		Regime: regime,
		Params: strategy.ParamsFor(regime),
		Bias:   strategy.HTFBias(tk.Macro, tk.MacroHistory),
	}

	if ev.State == StateOpen {
		pos := *l.Position
		ev.Transition = pos.Step(b)
		l.Position = &pos
		if ev.Transition.Action != strategy.ActionExit {
			return l, ev
		}
		next, trade, err := l.settle(b.Time, ev.Transition.Kind, ev.Transition.ExitPrice, r.FeeRate)
		if err != nil {
			// unreachable: the state was checked above
			return l, ev
		}
		ev.Trade = &trade
		return next, ev
	}

	if ev.Bias.BlocksEntry() {
		ev.Reject = strategy.RejectBias
		return l, ev
	}

	d := strategy.EvaluateEntry(strategy.EntryInput{
		Bar:             b,
		Prev:            tk.Prev,
		Params:          ev.Params,
		Balance:         l.Balance,
		FeeRate:         r.FeeRate,
		RSIThreshold:    tk.RSIThreshold,
		CapitalFraction: r.CapitalFraction,
		ApplyRiskScale:  r.ApplyRiskScale,
	})
	ev.Entry = &d
	if !d.Enter {
		ev.Reject = d.Reason
		return l, ev
	}

	pos := strategy.Open(b.Time, d.Order, regime, ev.Params)
	next, err := l.open(pos)
	if err != nil {
		return l, ev
	}
	ev.Opened = pos
	return next, ev
}
