package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/waterfall/indicators"
	"github.com/rustyeddy/waterfall/market"
	"github.com/rustyeddy/waterfall/strategy"
)

// DefaultWarmupBars is the first micro index the clock evaluates. It leaves
// room for the 200 bar trend EMA and a full RSI baseline window.
const DefaultWarmupBars = 200

var ErrBadConfig = errors.New("backtest: invalid config")

type Config struct {
	StartBalance    float64
	FeeRate         float64 // fraction of notional per side
	WarmupBars      int
	RSIWindow       int     // RSI baseline window, 0 = 100
	CapitalFraction float64 // 0 = 0.95
	ApplyRiskScale  bool

	// Days is the nominal lookback used for trades per day. When zero the
	// span of the evaluated bars is used instead.
	Days float64
}

func DefaultConfig() Config {
	return Config{
		StartBalance:    1000,
		FeeRate:         0.0006,
		WarmupBars:      DefaultWarmupBars,
		RSIWindow:       strategy.RSIBaselineWindow,
		CapitalFraction: strategy.CapitalFraction,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.StartBalance > 0):
		return fmt.Errorf("%w: start balance %v must be > 0", ErrBadConfig, c.StartBalance)
	case !(c.FeeRate >= 0 && c.FeeRate < 1):
		return fmt.Errorf("%w: fee rate %v must be in [0, 1)", ErrBadConfig, c.FeeRate)
	case c.WarmupBars < 0:
		return fmt.Errorf("%w: warmup bars %d must be >= 0", ErrBadConfig, c.WarmupBars)
	case c.RSIWindow < 0:
		return fmt.Errorf("%w: rsi window %d must be >= 0", ErrBadConfig, c.RSIWindow)
	case c.CapitalFraction < 0 || c.CapitalFraction > 1:
		return fmt.Errorf("%w: capital fraction %v must be in [0, 1]", ErrBadConfig, c.CapitalFraction)
	case c.Days < 0:
		return fmt.Errorf("%w: days %v must be >= 0", ErrBadConfig, c.Days)
	}
	return nil
}

func (c Config) rules() Rules {
	return Rules{
		FeeRate:         c.FeeRate,
		CapitalFraction: c.CapitalFraction,
		ApplyRiskScale:  c.ApplyRiskScale,
	}
}

// Observer sees every event together with the ledger it produced.
type Observer interface {
	Observe(ev Event, l Ledger)
}

type Engine struct {
	cfg       Config
	log       zerolog.Logger
	observers []Observer
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Prepare computes the indicator columns for both series.
func Prepare(micro, macro []market.Bar) ([]market.Bar, []market.Bar) {
	return indicators.EnrichMicro(micro), indicators.EnrichMacro(macro)
}

// Run replays the micro series bar by bar. Both series must already carry
// their indicators (see Prepare). The macro series may be empty, in which
// case the higher timeframe bias is always neutral.
//
// Every bar's RSI feeds the baseline window after that bar is evaluated, so
// the threshold on bar i only sees bars before i.
func (e *Engine) Run(ctx context.Context, micro, macro []market.Bar) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := market.Validate(micro); err != nil {
		return nil, fmt.Errorf("micro series: %w", err)
	}
	if len(macro) > 0 {
		if err := market.Validate(macro); err != nil {
			return nil, fmt.Errorf("macro series: %w", err)
		}
	}

	first := e.cfg.WarmupBars
	if first < 1 {
		first = 1
	}

	var (
		led      = NewLedger(e.cfg.StartBalance)
		rules    = e.cfg.rules()
		baseline = strategy.NewRSIBaseline(e.cfg.RSIWindow)
		cursor   = newMacroCursor(macro)
		tally    = newTally()
		res      = &Result{Config: e.cfg}
	)

	e.log.Info().
		Int("micro", len(micro)).
		Int("macro", len(macro)).
		Int("warmup", first).
		Float64("capital", e.cfg.StartBalance).
		Float64("fee_rate", e.cfg.FeeRate).
		Msg("backtest start")

	for i := range micro {
		if i >= first {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			mb, hist := cursor.At(micro[i].Time)
			tk := Tick{
				Index:        i,
				Bar:          micro[i],
				Prev:         micro[i-1],
				Macro:        mb,
				MacroHistory: hist,
				RSIThreshold: baseline.Threshold(),
			}

			var ev Event
			led, ev = Step(led, tk, rules)
			if res.Ticks == 0 {
				res.Start = ev.Time
				res.Equity = append(res.Equity, EquityPoint{Time: ev.Time, Balance: led.StartBalance})
			}
			res.Ticks++
			res.End = ev.Time
			tally.add(ev)
			if ev.Trade != nil {
				res.Equity = append(res.Equity, EquityPoint{Time: ev.Time, Balance: led.Balance})
			}
			e.logEvent(ev)
			for _, o := range e.observers {
				o.Observe(ev, led)
			}
		}
		baseline.Push(micro[i].RSI)
	}

	res.Ledger = led
	res.Trades = led.Trades
	if led.Position != nil && res.Ticks > 0 {
		last := micro[len(micro)-1]
		res.OpenPosition = &OpenPosition{
			Position:   *led.Position,
			MarkTime:   last.Time,
			MarkPrice:  last.Close,
			Unrealized: led.Position.Unrealized(last.Close, e.cfg.FeeRate),
		}
	}
	res.Summary = summarize(res, tally)

	e.log.Info().
		Int("ticks", res.Ticks).
		Int("trades", res.Summary.Trades).
		Float64("win_rate", res.Summary.WinRate).
		Float64("balance", res.Summary.FinalBalance).
		Bool("open", res.OpenPosition != nil).
		Msg("backtest done")
	return res, nil
}

func (e *Engine) logEvent(ev Event) {
	switch {
	case ev.Opened != nil:
		p := ev.Opened
		e.log.Info().
			Time("time", ev.Time).
			Str("regime", ev.Regime.String()).
			Float64("entry", p.EntryPrice).
			Float64("qty", p.Quantity).
			Float64("sl", p.StopLoss).
			Float64("tp", p.TakeProfit).
			Msg("open")
	case ev.Trade != nil:
		t := ev.Trade
		e.log.Info().
			Time("time", ev.Time).
			Int("trade", t.ID).
			Str("kind", t.Kind.String()).
			Float64("exit", t.ExitPrice).
			Float64("net", t.NetPnL).
			Float64("balance", t.Balance).
			Msg("close")
	case ev.Transition.Action == strategy.ActionTrail:
		e.log.Debug().
			Time("time", ev.Time).
			Float64("from", ev.Transition.PrevStop).
			Float64("to", ev.Transition.NewStop).
			Msg("trail stop")
	case ev.Reject != strategy.RejectNone:
		e.log.Trace().
			Time("time", ev.Time).
			Str("reason", ev.Reject.String()).
			Str("bias", ev.Bias.String()).
			Msg("no entry")
	}
}

// Span is the wall-clock range covered by the evaluated ticks.
func (r *Result) Span() time.Duration {
	if r.Ticks == 0 {
		return 0
	}
	return r.End.Sub(r.Start)
}
