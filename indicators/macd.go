package indicators

import "fmt"

// MACD tracks the MACD line (fast EMA - slow EMA), its signal EMA and the
// histogram (line - signal).
type MACD struct {
	fast, slow, signal int

	fastEMA   *EMA
	slowEMA   *EMA
	signalEMA *EMA

	line float64
}

func NewMACD(fast, slow, signal int) *MACD {
	if fast <= 0 || slow <= fast || signal <= 0 {
		panic(fmt.Sprintf("bad MACD periods (%d,%d,%d)", fast, slow, signal))
	}
	return &MACD{
		fast:      fast,
		slow:      slow,
		signal:    signal,
		fastEMA:   NewEMA(fast),
		slowEMA:   NewEMA(slow),
		signalEMA: NewEMA(signal),
	}
}

func (m *MACD) Name() string { return fmt.Sprintf("MACD(%d,%d,%d)", m.fast, m.slow, m.signal) }
func (m *MACD) Warmup() int  { return m.slow + m.signal - 1 }
func (m *MACD) Ready() bool  { return m.signalEMA.Ready() }

func (m *MACD) Reset() {
	m.fastEMA.Reset()
	m.slowEMA.Reset()
	m.signalEMA.Reset()
	m.line = 0
}

func (m *MACD) Update(x float64) {
	m.fastEMA.Update(x)
	m.slowEMA.Update(x)
	if !m.slowEMA.Ready() {
		return
	}
	m.line = m.fastEMA.Value() - m.slowEMA.Value()
	m.signalEMA.Update(m.line)
}

// Value returns the histogram.
func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line - m.signalEMA.Value()
}

func (m *MACD) Line() float64   { return m.line }
func (m *MACD) Signal() float64 { return m.signalEMA.Value() }
