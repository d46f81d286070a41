package strategy

import (
	"fmt"

	"github.com/rustyeddy/waterfall/market"
)

// Bias is the directional lean of the higher (macro) timeframe.
type Bias int

const (
	BiasNeutral Bias = iota
	BiasBullish
	BiasBearish
)

// MinMacroHistory is how many macro bars must precede the current tick
// before the macro trend is trusted.
const MinMacroHistory = 50

func (b Bias) String() string {
	switch b {
	case BiasNeutral:
		return "NEUTRAL"
	case BiasBullish:
		return "BULLISH"
	case BiasBearish:
		return "BEARISH"
	default:
		return fmt.Sprintf("Bias(%d)", int(b))
	}
}

// BlocksEntry reports whether the bias suppresses new entries. Only a
// bearish macro trend does; the gate can veto an entry but never force one.
func (b Bias) BlocksEntry() bool {
	return b == BiasBearish
}

// HTFBias derives the macro bias from the most recent macro bar that closed
// before the current tick. history is the number of macro bars available
// up to and including ctx.
//
// With no context, too little history or an undefined macro EMA the bias
// is NEUTRAL, which lets entries through: the simulation must not stall
// while the macro series warms up.
func HTFBias(ctx *market.Bar, history int) Bias {
	if ctx == nil || history < MinMacroHistory || !market.Defined(ctx.EMA50) {
		return BiasNeutral
	}
	if ctx.Close > ctx.EMA50 {
		return BiasBullish
	}
	return BiasBearish
}
