package market

import (
	"math"
	"time"
)

// Indicators are the precomputed values attached to a Bar by the
// indicators package. A value that could not be computed yet (not enough
// history) is NaN; use Defined before reading it.
type Indicators struct {
	// micro timeframe
	EMA200   float64
	RSI      float64
	ATR      float64
	ADX      float64
	MACDHist float64
	ATRSMA   float64

	// macro timeframe
	EMA50 float64
}

// NoIndicators returns an Indicators value with every field undefined.
func NoIndicators() Indicators {
	nan := math.NaN()
	return Indicators{
		EMA200:   nan,
		RSI:      nan,
		ATR:      nan,
		ADX:      nan,
		MACDHist: nan,
		ATRSMA:   nan,
		EMA50:    nan,
	}
}

// Bar is one OHLCV interval plus its indicator values. Bars are passed by
// value and never modified once built.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	Indicators
}

// NewBar builds a bar with all indicators undefined.
func NewBar(t time.Time, o, h, l, c, v float64) Bar {
	return Bar{
		Time:       t,
		Open:       o,
		High:       h,
		Low:        l,
		Close:      c,
		Volume:     v,
		Indicators: NoIndicators(),
	}
}

// Defined reports whether x holds a usable indicator value.
func Defined(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllDefined reports whether every value in xs is usable.
func AllDefined(xs ...float64) bool {
	for _, x := range xs {
		if !Defined(x) {
			return false
		}
	}
	return true
}
