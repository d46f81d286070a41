package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/waterfall/backtest"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time

	Exchange       string
	Symbol         string
	MicroTimeframe string
	MacroTimeframe string
	Dataset        string
	Config         []byte // config as YAML
	FeeRate        float64

	Start time.Time
	End   time.Time
	Days  float64

	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	NetPL          float64
	ReturnPct      float64
	WinRate        float64 // percent
	TradesPerDay   float64
	ProfitFactor   float64
	MaxDDPct       float64
	Fees           float64
	OpenUnrealized float64

	OrgPath string

	Notes       []string
	NextActions []string
}

// NewBacktestRun fills the result columns from a finished run. The caller
// sets the market and dataset columns.
func NewBacktestRun(runID string, res *backtest.Result) BacktestRun {
	s := res.Summary
	run := BacktestRun{
		RunID:        runID,
		Created:      time.Now().UTC(),
		FeeRate:      res.Config.FeeRate,
		Start:        res.Start,
		End:          res.End,
		Days:         s.Days,
		Trades:       s.Trades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		StartBalance: s.StartBalance,
		EndBalance:   s.FinalBalance,
		NetPL:        s.NetProfit,
		WinRate:      s.WinRate,
		TradesPerDay: s.TradesPerDay,
		ProfitFactor: s.ProfitFactor,
		MaxDDPct:     s.MaxDrawdownPct,
		Fees:         s.Fees,
	}
	if s.StartBalance > 0 {
		run.ReturnPct = s.NetProfit / s.StartBalance * 100
	}
	if res.OpenPosition != nil {
		run.OpenUnrealized = res.OpenPosition.Unrealized
		run.Notes = append(run.Notes, fmt.Sprintf("position still open at %s, unrealized %.2f",
			res.OpenPosition.MarkTime.Format(time.RFC3339), res.OpenPosition.Unrealized))
	}
	return run
}

var backtestOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// WriteOrg renders the run as an Org-mode entry.
func (v *BacktestRun) WriteOrg(w io.Writer) error {
	return backtestOrg.Execute(w, v)
}

// WriteOrgFile renders the run to OrgPath.
func (v *BacktestRun) WriteOrgFile() error {
	if v.OrgPath == "" {
		return fmt.Errorf("backtest run %s: no org path", v.RunID)
	}
	buf := new(bytes.Buffer)
	if err := v.WriteOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: Waterfall {{.Symbol}} {{if .MicroTimeframe}}{{.MicroTimeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    waterfall
:EXCHANGE:    {{.Exchange}}
:SYMBOL:      {{.Symbol}}
:MICRO_TF:    {{.MicroTimeframe}}
:MACRO_TF:    {{.MacroTimeframe}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.End.Format "2006-01-02 15:04"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.1f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(no-losses){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Parameters
| Parameter | Value |
|-----------+-------|
| Fee rate  | {{printf "%.4f" .FeeRate}} |
| Days      | {{printf "%.1f" .Days}} |

{{- if .Config }}

#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end }}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.1f" .WinRate}}%*
- Trades / Day:     *{{printf "%.1f" .TradesPerDay}}*
- Fees:             *{{printf "%.2f" .Fees}}*
- Profit Factor:    *{{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(no-losses){{end}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
