package strategy

import "github.com/rustyeddy/waterfall/market"

const (
	RSIBaselineWindow  = 100
	RSILowCutoff       = 50.0
	DefaultRSIBaseline = 45.0
	RSIThresholdOffset = 5.0
)

// RSIBaseline tracks the RSI of the trailing window of bars and derives the
// dynamic oversold baseline: the mean of the RSI values below 50. With no
// such value in the window the baseline falls back to 45.
//
// The mean is recomputed over the whole window on every call, oldest value
// first, so the result is exactly that of a full window rescan.
type RSIBaseline struct {
	buf  []float64
	next int
	n    int
}

func NewRSIBaseline(window int) *RSIBaseline {
	if window <= 0 {
		window = RSIBaselineWindow
	}
	return &RSIBaseline{buf: make([]float64, window)}
}

// Push adds the RSI of the bar that just closed. Undefined values take a
// slot in the window but never count toward the baseline.
func (b *RSIBaseline) Push(rsi float64) {
	b.buf[b.next] = rsi
	b.next = (b.next + 1) % len(b.buf)
	if b.n < len(b.buf) {
		b.n++
	}
}

// Len returns how many bars are currently in the window.
func (b *RSIBaseline) Len() int { return b.n }

// Baseline returns the mean of the sub-50 RSI values in the window.
func (b *RSIBaseline) Baseline() float64 {
	start := b.next - b.n
	if start < 0 {
		start += len(b.buf)
	}

	sum := 0.0
	count := 0
	for i := 0; i < b.n; i++ {
		v := b.buf[(start+i)%len(b.buf)]
		if market.Defined(v) && v < RSILowCutoff {
			sum += v
			count++
		}
	}
	if count == 0 {
		return DefaultRSIBaseline
	}
	return sum / float64(count)
}

// Threshold is the RSI level an entry must be below.
func (b *RSIBaseline) Threshold() float64 {
	return b.Baseline() + RSIThresholdOffset
}
