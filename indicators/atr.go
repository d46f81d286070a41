package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/waterfall/market"
)

// ATR is a streaming Average True Range (Wilder smoothing).
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevClose   float64
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{period: period}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup needs period+1 bars because TR requires the previous close.
func (a *ATR) Warmup() int { return a.period + 1 }
func (a *ATR) Ready() bool { return a.count >= a.period }

func (a *ATR) Reset() {
	*a = ATR{period: a.period}
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrevious {
		a.prevClose = b.Close
		a.hasPrevious = true
		return
	}

	tr := trueRange(b.High, b.Low, a.prevClose)
	a.prevClose = b.Close

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}
	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

func trueRange(high, low, prevClose float64) float64 {
	return max3(high-low, math.Abs(high-prevClose), math.Abs(low-prevClose))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
