package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/waterfall/market"
)

const (
	// The stop is trailed once the close is TrailTriggerATR entry-ATRs above
	// the entry, and then locks in TrailLockATR entry-ATRs of profit.
	TrailTriggerATR = 2.0
	TrailLockATR    = 0.5
)

// ExitKind is why a position closed.
type ExitKind int

const (
	ExitStopLoss ExitKind = iota + 1
	ExitTakeProfit
)

func (k ExitKind) String() string {
	switch k {
	case ExitStopLoss:
		return "SL"
	case ExitTakeProfit:
		return "TP"
	default:
		return fmt.Sprintf("ExitKind(%d)", int(k))
	}
}

// Name is the long form used in journals ("STOP_LOSS", "TAKE_PROFIT").
func (k ExitKind) Name() string {
	switch k {
	case ExitStopLoss:
		return "STOP_LOSS"
	case ExitTakeProfit:
		return "TAKE_PROFIT"
	default:
		return k.String()
	}
}

// ParseExitKind accepts both the short and long forms.
func ParseExitKind(s string) (ExitKind, error) {
	switch s {
	case "SL", "STOP_LOSS":
		return ExitStopLoss, nil
	case "TP", "TAKE_PROFIT":
		return ExitTakeProfit, nil
	}
	return 0, fmt.Errorf("unknown exit kind %q", s)
}

// Position is the single open long position.
type Position struct {
	EntryTime  time.Time
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	EntryATR   float64 // ATR at entry, drives the trailing stop
	EntryFee   float64 // fee estimated at entry, settled at close
	Regime     Regime
	Params     Params
}

// Open builds a position from an accepted entry order.
func Open(t time.Time, o Order, r Regime, p Params) *Position {
	return &Position{
		EntryTime:  t,
		EntryPrice: o.Price,
		Quantity:   o.Quantity,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		EntryATR:   o.ATR,
		EntryFee:   o.EstimatedFee,
		Regime:     r,
		Params:     p,
	}
}

// Action is what happened to an open position on one tick.
type Action int

const (
	ActionHold Action = iota
	ActionTrail
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "hold"
	case ActionTrail:
		return "trail"
	case ActionExit:
		return "exit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Transition describes the outcome of Step.
type Transition struct {
	Action    Action
	Kind      ExitKind // set when Action == ActionExit
	ExitPrice float64  // set when Action == ActionExit
	PrevStop  float64
	NewStop   float64
}

// Step advances the position by one bar. In order:
//
//  1. low <= stop         exit at the stop
//  2. high >= take profit exit at the take profit
//  3. close > entry + 2*ATR(entry): raise the stop to entry + 0.5*ATR(entry)
//
// When both levels are inside the same bar the stop wins; OHLC data cannot
// tell which one traded first. The stop is never lowered.
func (p *Position) Step(b market.Bar) Transition {
	tr := Transition{PrevStop: p.StopLoss, NewStop: p.StopLoss}

	switch {
	case b.Low <= p.StopLoss:
		tr.Action = ActionExit
		tr.Kind = ExitStopLoss
		tr.ExitPrice = p.StopLoss
	case b.High >= p.TakeProfit:
		tr.Action = ActionExit
		tr.Kind = ExitTakeProfit
		tr.ExitPrice = p.TakeProfit
	case b.Close > p.EntryPrice+TrailTriggerATR*p.EntryATR:
		p.StopLoss = math.Max(p.StopLoss, p.EntryPrice+TrailLockATR*p.EntryATR)
		tr.NewStop = p.StopLoss
		if tr.NewStop > tr.PrevStop {
			tr.Action = ActionTrail
		}
	}
	return tr
}

// GrossPnL is the price PnL of closing the whole position at price.
func (p *Position) GrossPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity
}

// Unrealized is the mark-to-market PnL at price, net of the entry fee and
// the fee an exit at that price would pay.
func (p *Position) Unrealized(price, feeRate float64) float64 {
	return p.GrossPnL(price) - price*p.Quantity*feeRate - p.EntryFee
}
