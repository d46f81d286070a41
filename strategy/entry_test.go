package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/waterfall/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// qualifyingInput is the flat-account setup: close=100 breaks the prior
// high of 99, above EMA200=95, histogram 0.5, RSI just under the 45+5
// threshold and ADX=30.
func qualifyingInput() EntryInput {
	bar := market.NewBar(entryTime, 99.5, 100.5, 99.2, 100, 10)
	bar.EMA200 = 95
	bar.MACDHist = 0.5
	bar.RSI = 49
	bar.ATR = 2
	bar.ADX = 30
	bar.ATRSMA = 1.8

	prev := market.NewBar(entryTime.Add(-time.Minute), 98, 99, 97.5, 98.8, 10)

	return EntryInput{
		Bar:          bar,
		Prev:         prev,
		Params:       ParamsFor(ClassifyRegime(bar.ADX, bar.ATR, bar.ATRSMA)),
		Balance:      1000,
		FeeRate:      0.0012,
		RSIThreshold: NewRSIBaseline(RSIBaselineWindow).Threshold(),
	}
}

func TestEvaluateEntryScenario(t *testing.T) {
	t.Parallel()

	in := qualifyingInput()
	require.Equal(t, 50.0, in.RSIThreshold)

	d := EvaluateEntry(in)
	require.True(t, d.Enter, d.Reason.String())
	assert.Equal(t, RejectNone, d.Reason)

	o := d.Order
	assert.Equal(t, DefaultFeeMultiple, o.FeeMultiple)
	assert.Equal(t, 100.0, o.Price)
	assert.InDelta(t, 9.5, o.Quantity, 1e-12)
	assert.InDelta(t, 100-2*2.0, o.StopLoss, 1e-12)
	assert.InDelta(t, 100+3*2.0, o.TakeProfit, 1e-12)
	assert.Equal(t, 2.0, o.ATR)
	assert.InDelta(t, 9.5*100*0.0012, o.EstimatedFee, 1e-12)
	assert.InDelta(t, 3*2*9.5, o.ProjectedProfit, 1e-12)
}

func TestEvaluateEntryFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*EntryInput)
		want   RejectReason
	}{
		{"undefined ema", func(in *EntryInput) { in.Bar.EMA200 = math.NaN() }, RejectIndicators},
		{"undefined atr", func(in *EntryInput) { in.Bar.ATR = math.NaN() }, RejectIndicators},
		{"undefined adx", func(in *EntryInput) { in.Bar.ADX = math.NaN() }, RejectIndicators},
		{"undefined threshold", func(in *EntryInput) { in.RSIThreshold = math.NaN() }, RejectIndicators},
		{"below trend", func(in *EntryInput) { in.Bar.EMA200 = 100 }, RejectTrend},
		{"negative histogram", func(in *EntryInput) { in.Bar.MACDHist = -0.1 }, RejectMomentum},
		{"zero histogram", func(in *EntryInput) { in.Bar.MACDHist = 0 }, RejectMomentum},
		// RSI < threshold is strict: RSI equal to the threshold rejects.
		{"rsi at threshold", func(in *EntryInput) { in.Bar.RSI = 50 }, RejectRSI},
		{"rsi above threshold", func(in *EntryInput) { in.Bar.RSI = 62 }, RejectRSI},
		{"no breakout", func(in *EntryInput) { in.Prev.High = 100 }, RejectBreakout},
		{"empty account", func(in *EntryInput) { in.Balance = 0 }, RejectBalance},
		{"fees eat the target", func(in *EntryInput) { in.FeeRate = 0.05 }, RejectFeeGate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := qualifyingInput()
			tt.mutate(&in)
			d := EvaluateEntry(in)
			assert.False(t, d.Enter)
			assert.Equal(t, tt.want, d.Reason)
		})
	}
}

func TestEvaluateEntryFeeGateBoundary(t *testing.T) {
	t.Parallel()

	// Every quantity below is exact in binary floating point:
	// qty = 1900*0.5/100 = 9.5, fee = 950 * 2^-10, required = fee*2.5,
	// projected = 1 * 125/512 * 9.5 == required.
	in := qualifyingInput()
	in.Balance = 1900
	in.CapitalFraction = 0.5
	in.FeeRate = 1.0 / 1024
	in.Params.TPMultiplier = 1
	in.Bar.ATR = 125.0 / 512

	d := EvaluateEntry(in)
	require.Equal(t, d.Order.EstimatedFee*d.Order.FeeMultiple, d.Order.ProjectedProfit)
	assert.False(t, d.Enter)
	assert.Equal(t, RejectFeeGate, d.Reason)

	in.Bar.ATR = 0.25
	d = EvaluateEntry(in)
	assert.True(t, d.Enter)
}

func TestRequiredFeeMultiple(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.5, RequiredFeeMultiple(30))
	assert.Equal(t, 2.5, RequiredFeeMultiple(40))
	assert.Equal(t, 1.5, RequiredFeeMultiple(40.01))
	assert.Equal(t, 2.5, RequiredFeeMultiple(math.NaN()))
}

func TestEvaluateEntryStrongTrendRelaxesGate(t *testing.T) {
	t.Parallel()

	// projected = 1 * 0.2 * 9.5 = 1.9, fee = 950*0.001 = 0.95
	// 1.9 > 0.95*1.5 but not > 0.95*2.5
	in := qualifyingInput()
	in.Params.TPMultiplier = 1
	in.Bar.ATR = 0.2
	in.FeeRate = 0.001

	in.Bar.ADX = 30
	assert.Equal(t, RejectFeeGate, EvaluateEntry(in).Reason)

	in.Bar.ADX = 45
	assert.True(t, EvaluateEntry(in).Enter)
}

func TestEvaluateEntryRiskScale(t *testing.T) {
	t.Parallel()

	in := qualifyingInput()
	in.Params = ParamsFor(RegimeVolatile)

	full := EvaluateEntry(in)
	require.True(t, full.Enter)

	in.ApplyRiskScale = true
	half := EvaluateEntry(in)
	require.True(t, half.Enter)
	assert.InDelta(t, full.Order.Quantity*0.5, half.Order.Quantity, 1e-12)
	assert.InDelta(t, 100-3*2.0, half.Order.StopLoss, 1e-12)
}
