package backtest

import (
	"time"

	"github.com/rustyeddy/waterfall/market"
)

// macroCursor is a forward-only as-of join over the macro series. Micro
// ticks arrive in time order so the cursor never moves back.
type macroCursor struct {
	bars []market.Bar
	next int
}

func newMacroCursor(bars []market.Bar) *macroCursor {
	return &macroCursor{bars: bars}
}

// At returns the latest macro bar with a timestamp strictly before t and
// the number of macro bars available up to and including it.
func (c *macroCursor) At(t time.Time) (*market.Bar, int) {
	for c.next < len(c.bars) && c.bars[c.next].Time.Before(t) {
		c.next++
	}
	if c.next == 0 {
		return nil, 0
	}
	return &c.bars[c.next-1], c.next
}
