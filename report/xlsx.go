package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/waterfall/backtest"
	"github.com/rustyeddy/waterfall/strategy"
)

const (
	SheetSummary = "Summary"
	SheetTrades  = "Trades"
	SheetRegimes = "Regimes"
	SheetEquity  = "Equity"
)

var tradeColumns = []string{"#", "Entry Time", "Exit Time", "Kind", "Regime", "Entry Price", "Exit Price", "Quantity", "Gross PnL", "Fees", "Net PnL", "Balance"}

type styles struct {
	header int
	money  int
	pct    int
	stamp  int
}

func newStyles(fx *excelize.File) (styles, error) {
	var (
		s   styles
		err error
	)
	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, err
	}
	fmt2 := "#,##0.00"
	if s.money, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &fmt2}); err != nil {
		return s, err
	}
	pct := "0.00\"%\""
	if s.pct, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &pct}); err != nil {
		return s, err
	}
	stamp := "yyyy-mm-dd hh:mm"
	s.stamp, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &stamp})
	return s, err
}

// WriteXLSX writes a workbook with the summary, every trade, the regime
// breakdown and the balance curve.
func WriteXLSX(path string, m Meta, res *backtest.Result) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetTrades, SheetRegimes, SheetEquity} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	st, err := newStyles(fx)
	if err != nil {
		return fmt.Errorf("xlsx styles: %w", err)
	}

	for _, write := range []func(*excelize.File, styles, Meta, *backtest.Result) error{
		writeSummarySheet,
		writeTradesSheet,
		writeRegimesSheet,
		writeEquitySheet,
	} {
		if err := write(fx, st, m, res); err != nil {
			return err
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func header(fx *excelize.File, sheet string, st styles, cols []string) error {
	for i, h := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummarySheet(fx *excelize.File, st styles, m Meta, res *backtest.Result) error {
	s := res.Summary
	rows := []struct {
		label string
		value any
		style int
	}{
		{"Run", m.RunID, 0},
		{"Exchange", m.Exchange, 0},
		{"Symbol", m.Symbol, 0},
		{"Micro Timeframe", m.MicroTimeframe, 0},
		{"Macro Timeframe", m.MacroTimeframe, 0},
		{"Start", res.Start, st.stamp},
		{"End", res.End, st.stamp},
		{"Ticks", res.Ticks, 0},
		{"Trades", s.Trades, 0},
		{"Wins", s.Wins, 0},
		{"Losses", s.Losses, 0},
		{"Win Rate", s.WinRate, st.pct},
		{"Trades / Day", s.TradesPerDay, st.money},
		{"Start Balance", s.StartBalance, st.money},
		{"Final Balance", s.FinalBalance, st.money},
		{"Net Profit", s.NetProfit, st.money},
		{"Fees", s.Fees, st.money},
		{"Profit Factor", s.ProfitFactor, st.money},
		{"Max Drawdown", s.MaxDrawdownPct, st.pct},
	}
	if op := res.OpenPosition; op != nil {
		rows = append(rows, struct {
			label string
			value any
			style int
		}{"Open Unrealized", op.Unrealized, st.money})
	}

	if err := header(fx, SheetSummary, st, []string{"Metric", "Value"}); err != nil {
		return err
	}
	for i, r := range rows {
		row := i + 2
		if err := fx.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", row), &[]any{r.label, r.value}); err != nil {
			return err
		}
		if r.style != 0 {
			cell := fmt.Sprintf("B%d", row)
			if err := fx.SetCellStyle(SheetSummary, cell, cell, r.style); err != nil {
				return err
			}
		}
	}
	if err := fx.SetColWidth(SheetSummary, "A", "A", 18); err != nil {
		return err
	}
	return fx.SetColWidth(SheetSummary, "B", "B", 22)
}

func writeTradesSheet(fx *excelize.File, st styles, _ Meta, res *backtest.Result) error {
	if err := header(fx, SheetTrades, st, tradeColumns); err != nil {
		return err
	}
	for i, t := range res.Trades {
		row := i + 2
		vals := []any{
			t.ID, t.EntryTime, t.ExitTime, t.Kind.Name(), t.Regime.String(),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.GrossPnL, t.Fees, t.NetPnL, t.Balance,
		}
		if err := fx.SetSheetRow(SheetTrades, fmt.Sprintf("A%d", row), &vals); err != nil {
			return err
		}
	}
	if n := len(res.Trades); n > 0 {
		if err := fx.SetCellStyle(SheetTrades, "B2", fmt.Sprintf("C%d", n+1), st.stamp); err != nil {
			return err
		}
		if err := fx.SetCellStyle(SheetTrades, "I2", fmt.Sprintf("L%d", n+1), st.money); err != nil {
			return err
		}
		if err := fx.AutoFilter(SheetTrades, fmt.Sprintf("A1:L%d", n+1), nil); err != nil {
			return err
		}
	}
	if err := fx.SetColWidth(SheetTrades, "B", "C", 18); err != nil {
		return err
	}
	return fx.SetColWidth(SheetTrades, "D", "E", 13)
}

func writeRegimesSheet(fx *excelize.File, st styles, _ Meta, res *backtest.Result) error {
	if err := header(fx, SheetRegimes, st, []string{"Regime", "Ticks", "Trades", "Net PnL"}); err != nil {
		return err
	}

	trades := make(map[strategy.Regime]int)
	pnl := make(map[strategy.Regime]float64)
	for _, t := range res.Trades {
		trades[t.Regime]++
		pnl[t.Regime] += t.NetPnL
	}
	for i, r := range strategy.Regimes {
		vals := []any{r.String(), res.Summary.RegimeTicks[r], trades[r], pnl[r]}
		if err := fx.SetSheetRow(SheetRegimes, fmt.Sprintf("A%d", i+2), &vals); err != nil {
			return err
		}
	}
	return fx.SetCellStyle(SheetRegimes, "D2", fmt.Sprintf("D%d", len(strategy.Regimes)+1), st.money)
}

func writeEquitySheet(fx *excelize.File, st styles, _ Meta, res *backtest.Result) error {
	if err := header(fx, SheetEquity, st, []string{"Time", "Balance"}); err != nil {
		return err
	}
	for i, p := range res.Equity {
		vals := []any{p.Time, p.Balance}
		if err := fx.SetSheetRow(SheetEquity, fmt.Sprintf("A%d", i+2), &vals); err != nil {
			return err
		}
	}
	if n := len(res.Equity); n > 0 {
		if err := fx.SetCellStyle(SheetEquity, "A2", fmt.Sprintf("A%d", n+1), st.stamp); err != nil {
			return err
		}
		if err := fx.SetCellStyle(SheetEquity, "B2", fmt.Sprintf("B%d", n+1), st.money); err != nil {
			return err
		}
	}
	return fx.SetColWidth(SheetEquity, "A", "A", 18)
}
