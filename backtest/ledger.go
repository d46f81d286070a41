package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/waterfall/strategy"
)

var (
	ErrPositionOpen = errors.New("backtest: position already open")
	ErrNoPosition   = errors.New("backtest: no open position")
)

// State is whether the account holds a position.
type State int

const (
	StateFlat State = iota
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateFlat:
		return "FLAT"
	case StateOpen:
		return "OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trade is a closed position. Trades are never modified once recorded.
type Trade struct {
	ID         int // 1-based, in close order
	EntryTime  time.Time
	ExitTime   time.Time
	Kind       strategy.ExitKind
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	GrossPnL   float64
	Fees       float64 // entry + exit
	NetPnL     float64
	Balance    float64 // after settlement
	Regime     strategy.Regime
	Params     strategy.Params
}

// Win reports whether the trade made money after fees.
func (t Trade) Win() bool { return t.NetPnL > 0 }

// Ledger is the account state threaded through the simulation. Step takes a
// ledger and returns the next one; the open position is copied before it is
// touched so earlier ledgers are never changed.
type Ledger struct {
	StartBalance float64
	Balance      float64
	Position     *strategy.Position
	Trades       []Trade
	Fees         float64
}

func NewLedger(capital float64) Ledger {
	return Ledger{StartBalance: capital, Balance: capital}
}

func (l Ledger) State() State {
	if l.Position != nil {
		return StateOpen
	}
	return StateFlat
}

// Realized is the sum of net PnL over all closed trades.
func (l Ledger) Realized() float64 {
	sum := 0.0
	for _, t := range l.Trades {
		sum += t.NetPnL
	}
	return sum
}

// Equity is the balance plus the unrealized PnL of the open position at
// price.
func (l Ledger) Equity(price, feeRate float64) float64 {
	if l.Position == nil {
		return l.Balance
	}
	return l.Balance + l.Position.Unrealized(price, feeRate)
}

func (l Ledger) open(p *strategy.Position) (Ledger, error) {
	if l.Position != nil {
		return l, ErrPositionOpen
	}
	l.Position = p
	return l, nil
}

// settle closes the open position at price. The fee estimated at entry is
// charged here together with the exit fee.
func (l Ledger) settle(t time.Time, kind strategy.ExitKind, price, feeRate float64) (Ledger, Trade, error) {
	p := l.Position
	if p == nil {
		return l, Trade{}, ErrNoPosition
	}

	gross := p.GrossPnL(price)
	exitFee := price * p.Quantity * feeRate
	fees := p.EntryFee + exitFee
	net := gross - fees

	l.Balance += net
	l.Fees += fees
	tr := Trade{
		ID:         len(l.Trades) + 1,
		EntryTime:  p.EntryTime,
		ExitTime:   t,
		Kind:       kind,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Quantity:   p.Quantity,
		GrossPnL:   gross,
		Fees:       fees,
		NetPnL:     net,
		Balance:    l.Balance,
		Regime:     p.Regime,
		Params:     p.Params,
	}
	l.Trades = append(l.Trades[:len(l.Trades):len(l.Trades)], tr)
	l.Position = nil
	return l, tr, nil
}
