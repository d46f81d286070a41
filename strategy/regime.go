// Package strategy holds the decision logic of the regime-adaptive long-only
// strategy: regime classification, per-regime parameters, the higher
// timeframe bias gate, the entry filters and the single-position lifecycle.
//
// Everything here is a pure function of its inputs except Position.Step,
// which owns the trailing stop of the one open position.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/waterfall/market"
)

// Regime is the market condition a tick is classified into.
type Regime int

const (
	RegimeNormal Regime = iota
	RegimeTrending
	RegimeRanging
	RegimeVolatile
)

// Regimes lists every regime, in a stable order for reports and metrics.
var Regimes = []Regime{RegimeTrending, RegimeRanging, RegimeVolatile, RegimeNormal}

const (
	TrendingADX      = 25.0
	RangingADX       = 20.0
	VolatileATRRatio = 1.5
)

func (r Regime) String() string {
	switch r {
	case RegimeTrending:
		return "TRENDING"
	case RegimeRanging:
		return "RANGING"
	case RegimeVolatile:
		return "VOLATILE"
	case RegimeNormal:
		return "NORMAL"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// ParseRegime is the inverse of Regime.String.
func ParseRegime(s string) (Regime, error) {
	for _, r := range Regimes {
		if strings.EqualFold(strings.TrimSpace(s), r.String()) {
			return r, nil
		}
	}
	return RegimeNormal, fmt.Errorf("unknown regime %q", s)
}

// ClassifyRegime maps trend strength and volatility to a regime. Rules are
// checked in order and the first match wins:
//
//	ADX > 25                       TRENDING
//	ADX < 20                       RANGING
//	ATRSMA > 0 && ATR > 1.5*ATRSMA VOLATILE
//	otherwise                      NORMAL
//
// A rule that reads an undefined (NaN) input is not met.
func ClassifyRegime(adx, atr, atrSMA float64) Regime {
	if market.Defined(adx) {
		if adx > TrendingADX {
			return RegimeTrending
		}
		if adx < RangingADX {
			return RegimeRanging
		}
	}
	if market.AllDefined(atr, atrSMA) && atrSMA > 0 && atr > atrSMA*VolatileATRRatio {
		return RegimeVolatile
	}
	return RegimeNormal
}
