// Package indicators computes the streaming technical indicators the
// backtest engine consumes: EMA, SMA, RSI, ATR, ADX and the MACD histogram.
package indicators

// Indicator computes a single streaming value.
// It is deterministic and safe to use in replay and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 when !Ready().
	Value() float64
}
