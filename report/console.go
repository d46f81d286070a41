package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/strategy"
)

// Meta describes the market a result was produced on.
type Meta struct {
	RunID          string
	Exchange       string
	Symbol         string
	MicroTimeframe string
	MacroTimeframe string
	Currency       string
}

func money(x float64, ccy string) string {
	if ccy == "" {
		return fmt.Sprintf("%.2f", x)
	}
	return fmt.Sprintf("%.2f %s", x, ccy)
}

func profitFactor(pf float64) string {
	if pf == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", pf)
}

// WriteSummary renders the headline numbers followed by the regime and
// rejection breakdowns.
func WriteSummary(w io.Writer, m Meta, res *backtest.Result) {
	s := res.Summary

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("BACKTEST %s %s/%s", m.Symbol, m.MicroTimeframe, m.MacroTimeframe))
	t.SetStyle(table.StyleRounded)
	if m.RunID != "" {
		t.AppendRow(table.Row{"Run", m.RunID})
	}
	t.AppendRows([]table.Row{
		{"Exchange", m.Exchange},
		{"Period", fmt.Sprintf("%s .. %s", res.Start.Format(time.DateTime), res.End.Format(time.DateTime))},
		{"Ticks", res.Ticks},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total Trades", s.Trades},
		{"Avg Trades/Day", fmt.Sprintf("%.1f", s.TradesPerDay)},
		{"Win Rate", fmt.Sprintf("%.1f%%", s.WinRate)},
		{"Wins / Losses", fmt.Sprintf("%d / %d", s.Wins, s.Losses)},
		{"TP / SL", fmt.Sprintf("%d / %d", s.TakeProfits, s.StopLosses)},
		{"Profit Factor", profitFactor(s.ProfitFactor)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdownPct)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Start Balance", money(s.StartBalance, m.Currency)},
		{"Final Balance", money(s.FinalBalance, m.Currency)},
		{"Net Profit", money(s.NetProfit, m.Currency)},
		{"Fees", money(s.Fees, m.Currency)},
	})
	if op := res.OpenPosition; op != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Open Position", fmt.Sprintf("%.6f @ %.2f since %s", op.Position.Quantity, op.Position.EntryPrice, op.Position.EntryTime.Format(time.DateTime))},
			{"Unrealized", money(op.Unrealized, m.Currency)},
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 24, Align: text.AlignRight},
	})
	t.Render()

	b := table.NewWriter()
	b.SetOutputMirror(w)
	b.SetTitle("REGIMES")
	b.SetStyle(table.StyleRounded)
	b.AppendHeader(table.Row{"Regime", "Ticks", "Share"})
	for _, r := range strategy.Regimes {
		n := s.RegimeTicks[r]
		b.AppendRow(table.Row{r.String(), n, share(n, res.Ticks)})
	}
	b.Render()

	if len(s.Rejections) == 0 {
		return
	}
	rj := table.NewWriter()
	rj.SetOutputMirror(w)
	rj.SetTitle("ENTRY REJECTIONS")
	rj.SetStyle(table.StyleRounded)
	rj.AppendHeader(table.Row{"Filter", "Ticks", "Share"})
	for _, r := range strategy.RejectReasons {
		if n := s.Rejections[r]; n > 0 {
			rj.AppendRow(table.Row{r.String(), n, share(n, res.Ticks)})
		}
	}
	rj.Render()
}

func share(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

// WriteTrades renders the closed trades. limit > 0 keeps only the last
// limit trades.
func WriteTrades(w io.Writer, trades []backtest.Trade, limit int) {
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Entry", "Exit", "Kind", "Regime", "Entry Px", "Exit Px", "Qty", "Net PnL", "Balance"})

	net := 0.0
	for _, tr := range trades {
		net += tr.NetPnL
		t.AppendRow(table.Row{
			tr.ID,
			tr.EntryTime.Format(time.DateTime),
			tr.ExitTime.Format(time.DateTime),
			tr.Kind.String(),
			tr.Regime.String(),
			fmt.Sprintf("%.2f", tr.EntryPrice),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%.6f", tr.Quantity),
			fmt.Sprintf("%+.2f", tr.NetPnL),
			fmt.Sprintf("%.2f", tr.Balance),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", fmt.Sprintf("%d trades", len(trades)), fmt.Sprintf("%+.2f", net), ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	t.Render()
}
