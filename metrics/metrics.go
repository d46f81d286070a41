package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/strategy"
)

const namespace = "waterfall"

// Recorder collects backtest metrics on its own registry so that several
// runs in one process never share counters. It implements
// backtest.Observer.
type Recorder struct {
	reg *prometheus.Registry

	ticks      *prometheus.CounterVec
	rejections *prometheus.CounterVec
	trades     *prometheus.CounterVec
	netPnL     prometheus.Histogram
	trails     prometheus.Counter
	balance    prometheus.Gauge
	open       prometheus.Gauge
	fetches    *prometheus.CounterVec
}

func NewRecorder(symbol string) *Recorder {
	labels := prometheus.Labels{"symbol": symbol}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ticks_total",
			Help:        "Evaluated micro bars by market regime.",
			ConstLabels: labels,
		}, []string{"regime"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "entry_rejections_total",
			Help:        "Flat ticks that did not enter, by first failing filter.",
			ConstLabels: labels,
		}, []string{"reason"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "trades_total",
			Help:        "Closed trades by exit kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		netPnL: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "trade_net_pnl",
			Help:        "Net PnL per closed trade after fees.",
			ConstLabels: labels,
			Buckets:     []float64{-50, -20, -10, -5, -2, -1, 0, 1, 2, 5, 10, 20, 50},
		}),
		trails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "stop_trails_total",
			Help:        "Times a trailing stop was raised.",
			ConstLabels: labels,
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "balance",
			Help:        "Realized account balance.",
			ConstLabels: labels,
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "position_open",
			Help:        "1 while a position is open.",
			ConstLabels: labels,
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Exchange kline requests by exchange and outcome.",
		}, []string{"exchange", "outcome"}),
	}

	r.reg.MustRegister(r.ticks, r.rejections, r.trades, r.netPnL, r.trails, r.balance, r.open, r.fetches)

	// Pre-create the label sets so that zero counts are exported.
	for _, g := range strategy.Regimes {
		r.ticks.WithLabelValues(g.String())
	}
	for _, reason := range strategy.RejectReasons {
		r.rejections.WithLabelValues(reason.String())
	}
	r.trades.WithLabelValues(strategy.ExitStopLoss.Name())
	r.trades.WithLabelValues(strategy.ExitTakeProfit.Name())
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Observe implements backtest.Observer.
func (r *Recorder) Observe(ev backtest.Event, l backtest.Ledger) {
	r.ticks.WithLabelValues(ev.Regime.String()).Inc()
	if ev.Reject != strategy.RejectNone {
		r.rejections.WithLabelValues(ev.Reject.String()).Inc()
	}
	if ev.Transition.Action == strategy.ActionTrail {
		r.trails.Inc()
	}
	if t := ev.Trade; t != nil {
		r.trades.WithLabelValues(t.Kind.Name()).Inc()
		r.netPnL.Observe(t.NetPnL)
	}
	r.balance.Set(l.Balance)
	if l.State() == backtest.StateOpen {
		r.open.Set(1)
	} else {
		r.open.Set(0)
	}
}

// ObserveFetch counts one exchange request.
func (r *Recorder) ObserveFetch(exchange string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(exchange, outcome).Inc()
}

// WriteTextfile writes the registry in the Prometheus text format, for the
// node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
