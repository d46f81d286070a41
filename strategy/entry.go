package strategy

import (
	"fmt"

	"github.com/rustyeddy/waterfall/market"
)

const (
	// CapitalFraction is the share of the balance committed to one entry.
	CapitalFraction = 0.95

	// StrongTrendADX relaxes the fee gate: above it the projected profit
	// only has to beat fees by StrongTrendFeeMultiple.
	StrongTrendADX         = 40.0
	StrongTrendFeeMultiple = 1.5
	DefaultFeeMultiple     = 2.5
)

// RejectReason names the first entry filter that failed.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectIndicators
	RejectTrend
	RejectMomentum
	RejectRSI
	RejectBreakout
	RejectBalance
	RejectFeeGate
	RejectBias
)

// RejectReasons lists every non-empty reason in filter order.
var RejectReasons = []RejectReason{
	RejectBias,
	RejectIndicators,
	RejectTrend,
	RejectMomentum,
	RejectRSI,
	RejectBreakout,
	RejectBalance,
	RejectFeeGate,
}

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectIndicators:
		return "indicators"
	case RejectTrend:
		return "trend"
	case RejectMomentum:
		return "momentum"
	case RejectRSI:
		return "rsi"
	case RejectBreakout:
		return "breakout"
	case RejectBalance:
		return "balance"
	case RejectFeeGate:
		return "fee_gate"
	case RejectBias:
		return "htf_bias"
	default:
		return fmt.Sprintf("RejectReason(%d)", int(r))
	}
}

// EntryInput is everything the entry decision looks at on one tick.
type EntryInput struct {
	Bar          market.Bar
	Prev         market.Bar
	Params       Params
	Balance      float64
	FeeRate      float64 // fraction of notional per side
	RSIThreshold float64

	// CapitalFraction overrides the package default when > 0.
	CapitalFraction float64
	// ApplyRiskScale scales the entry quantity by Params.RiskScale.
	ApplyRiskScale bool
}

// Order is a sized long entry at the bar close.
type Order struct {
	Price           float64
	Quantity        float64
	StopLoss        float64
	TakeProfit      float64
	ATR             float64
	EstimatedFee    float64
	ProjectedProfit float64
	FeeMultiple     float64
}

// EntryDecision is the go/no-go outcome. Order is only set when Enter is
// true; Reason is RejectNone in that case.
type EntryDecision struct {
	Enter  bool
	Reason RejectReason
	Order  Order
}

func reject(r RejectReason) EntryDecision {
	return EntryDecision{Reason: r}
}

// RequiredFeeMultiple is how many times the estimated fee the projected
// profit must exceed. Choppier (lower ADX) markets demand more.
func RequiredFeeMultiple(adx float64) float64 {
	if market.Defined(adx) && adx > StrongTrendADX {
		return StrongTrendFeeMultiple
	}
	return DefaultFeeMultiple
}

// EvaluateEntry runs the composite entry filter for a flat account:
//
//   - trend:     close > EMA200
//   - momentum:  MACD histogram > 0
//   - reversion: RSI < dynamic threshold
//   - breakout:  close > previous bar high
//   - fee gate:  TP * ATR * qty > estimated fee * required multiple
//
// Any undefined indicator rejects the tick. The caller is responsible for
// the FLAT state and the higher timeframe bias.
func EvaluateEntry(in EntryInput) EntryDecision {
	b := in.Bar
	if !market.AllDefined(b.EMA200, b.MACDHist, b.RSI, b.ATR, b.ADX, in.RSIThreshold) {
		return reject(RejectIndicators)
	}
	if !(b.Close > b.EMA200) {
		return reject(RejectTrend)
	}
	if !(b.MACDHist > 0) {
		return reject(RejectMomentum)
	}
	if !(b.RSI < in.RSIThreshold) {
		return reject(RejectRSI)
	}
	if !(b.Close > in.Prev.High) {
		return reject(RejectBreakout)
	}

	fraction := in.CapitalFraction
	if fraction <= 0 {
		fraction = CapitalFraction
	}
	if in.Balance <= 0 || b.Close <= 0 {
		return reject(RejectBalance)
	}

	qty := in.Balance * fraction / b.Close
	if in.ApplyRiskScale {
		qty *= in.Params.RiskScale
	}
	if qty <= 0 {
		return reject(RejectBalance)
	}

	estFee := qty * b.Close * in.FeeRate
	projected := in.Params.TPMultiplier * b.ATR * qty
	mult := RequiredFeeMultiple(b.ADX)

	order := Order{
		Price:           b.Close,
		Quantity:        qty,
		StopLoss:        b.Close - in.Params.SLMultiplier*b.ATR,
		TakeProfit:      b.Close + in.Params.TPMultiplier*b.ATR,
		ATR:             b.ATR,
		EstimatedFee:    estFee,
		ProjectedProfit: projected,
		FeeMultiple:     mult,
	}
	if !(projected > estFee*mult) {
		return EntryDecision{Reason: RejectFeeGate, Order: order}
	}
	return EntryDecision{Enter: true, Order: order}
}
