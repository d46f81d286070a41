package indicators

import "fmt"

// RSI is Wilder's Relative Strength Index over closes.
//
// The first average gain/loss is the simple mean of the first period
// changes; after that both are Wilder-smoothed. Ready after period+1
// closes.
type RSI struct {
	period int

	prev    float64
	hasPrev bool
	changes int

	avgGain float64
	avgLoss float64
}

func NewRSI(period int) *RSI {
	if period <= 0 {
		panic("RSI period must be > 0")
	}
	return &RSI{period: period}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }
func (r *RSI) Warmup() int  { return r.period + 1 }
func (r *RSI) Ready() bool  { return r.changes >= r.period }

func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

func (r *RSI) Update(x float64) {
	if !r.hasPrev {
		r.prev = x
		r.hasPrev = true
		return
	}

	delta := x - r.prev
	r.prev = x

	var gain, loss float64
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	n := float64(r.period)
	r.changes++
	if r.changes <= r.period {
		r.avgGain += gain / n
		r.avgLoss += loss / n
		return
	}
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
