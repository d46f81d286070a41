package indicators

import (
	"math"

	"github.com/rustyeddy/waterfall/market"
)

// Periods used by the strategy.
const (
	TrendPeriod      = 200
	RSIPeriod        = 21
	ATRPeriod        = 14
	ADXPeriod        = 14
	ATRSMAPeriod     = 50
	MacroTrendPeriod = 50
)

// EnrichMicro returns a copy of bars with EMA200, RSI21, ATR14, ADX14,
// MACD(12,26,9) histogram and the SMA50 of ATR attached. Values are NaN
// until the indicator that produces them is ready.
func EnrichMicro(bars []market.Bar) []market.Bar {
	ema := NewEMA(TrendPeriod)
	rsi := NewRSI(RSIPeriod)
	atr := NewATR(ATRPeriod)
	adx := NewADX(ADXPeriod)
	macd := NewMACD(12, 26, 9)
	atrSMA := NewSMA(ATRSMAPeriod)

	out := make([]market.Bar, len(bars))
	for i, b := range bars {
		ema.Update(b.Close)
		rsi.Update(b.Close)
		atr.Update(b)
		adx.Update(b)
		macd.Update(b.Close)

		ind := market.NoIndicators()
		ind.EMA200 = valueOf(ema)
		ind.RSI = valueOf(rsi)
		ind.ADX = valueOf(adx)
		ind.MACDHist = valueOf(macd)
		if atr.Ready() {
			ind.ATR = atr.Value()
			atrSMA.Update(ind.ATR)
			ind.ATRSMA = valueOf(atrSMA)
		}

		b.Indicators = ind
		out[i] = b
	}
	return out
}

// EnrichMacro returns a copy of bars with EMA50 attached.
func EnrichMacro(bars []market.Bar) []market.Bar {
	ema := NewEMA(MacroTrendPeriod)

	out := make([]market.Bar, len(bars))
	for i, b := range bars {
		ema.Update(b.Close)
		ind := market.NoIndicators()
		ind.EMA50 = valueOf(ema)
		b.Indicators = ind
		out[i] = b
	}
	return out
}

func valueOf(ind Indicator) float64 {
	if !ind.Ready() {
		return math.NaN()
	}
	return ind.Value()
}
