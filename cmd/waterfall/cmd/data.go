package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/waterfall/config"
	"github.com/rustyeddy/waterfall/exchange"
	"github.com/rustyeddy/waterfall/market"
)

func newExchangeClient(cfg *config.Config, obs exchange.FetchObserver) (*exchange.Client, error) {
	m := cfg.Market
	opts := []exchange.Option{exchange.WithLogger(logger)}
	if obs != nil {
		opts = append(opts, exchange.WithObserver(obs))
	}
	return exchange.New(exchange.Config{
		Exchange:          m.Exchange,
		BaseURL:           m.BaseURL,
		RequestsPerSecond: m.RequestsPerSecond,
		Retries:           m.Retries,
		Timeout:           m.TimeoutDuration(),
	}, opts...)
}

// loadBars returns the micro and macro series and a short description of
// where they came from. CSV files win over the exchange.
func loadBars(ctx context.Context, cfg *config.Config, obs exchange.FetchObserver) (micro, macro []market.Bar, dataset string, err error) {
	m := cfg.Market
	if m.MicroFile != "" {
		if micro, err = market.LoadBarsCSV(m.MicroFile); err != nil {
			return nil, nil, "", err
		}
		dataset = m.MicroFile
		if m.MacroFile != "" {
			if macro, err = market.LoadBarsCSV(m.MacroFile); err != nil {
				return nil, nil, "", err
			}
			dataset += "," + m.MacroFile
		} else {
			logger.Warn().Msg("no macro file, higher timeframe bias stays neutral")
		}
	} else {
		c, err := newExchangeClient(cfg, obs)
		if err != nil {
			return nil, nil, "", err
		}
		if micro, macro, err = c.Lookback(ctx, m.Symbol, m.MicroTimeframe, m.MacroTimeframe, m.Days, time.Now().UTC()); err != nil {
			return nil, nil, "", err
		}
		dataset = fmt.Sprintf("%s:%s:%s/%s:%gd", m.Exchange, m.Symbol, m.MicroTimeframe, m.MacroTimeframe, m.Days)
	}

	checkGaps("micro", micro, m.MicroTimeframe)
	checkGaps("macro", macro, m.MacroTimeframe)
	return micro, macro, dataset, nil
}

func checkGaps(name string, bars []market.Bar, tf string) {
	step, err := market.ParseTimeframe(tf)
	if err != nil {
		return
	}
	gaps := market.FindGaps(bars, step)
	if len(gaps) == 0 {
		return
	}
	missing := 0
	for _, g := range gaps {
		missing += g.Missing
	}
	logger.Warn().Str("series", name).Int("gaps", len(gaps)).Int("missing", missing).
		Time("first", gaps[0].After).Str("kind", gaps[0].Kind).Msg("series has gaps")
}
