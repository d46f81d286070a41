package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/waterfall/market"
)

// These tests drive the package level command tree and must not run in
// parallel.

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeBars(t *testing.T, dir string, n int) (micro, macro string) {
	t.Helper()
	t0 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	var mb []market.Bar
	prev := 100.0
	for i := 0; i < n; i++ {
		c := 100 + 4*math.Sin(float64(i)/25) + float64(i)*0.01
		hi, lo := math.Max(prev, c)+0.2, math.Min(prev, c)-0.2
		mb = append(mb, market.NewBar(t0.Add(time.Duration(i)*time.Minute), prev, hi, lo, c, 5))
		prev = c
	}

	var hb []market.Bar
	start := t0.Add(-5 * 24 * time.Hour)
	for i := 0; i < 36; i++ {
		c := 95 + float64(i)*0.2
		hb = append(hb, market.NewBar(start.Add(time.Duration(i)*4*time.Hour), c-0.1, c+1, c-1, c, 100))
	}

	micro = filepath.Join(dir, "micro.csv")
	macro = filepath.Join(dir, "macro.csv")
	require.NoError(t, market.SaveBarsCSV(micro, mb))
	require.NoError(t, market.SaveBarsCSV(macro, hb))
	return micro, macro
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "waterfall version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "waterfall.yaml")

	out, err := execute(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "binance BTCUSDT 1m/4h, 30 days")
	assert.Contains(t, out, "Journal: sqlite")

	_, err = execute(t, "config", "validate")
	require.Error(t, err)
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "version", "--log-level", "loud")
	require.Error(t, err)
}

func TestBacktestFromCSV(t *testing.T) {
	dir := t.TempDir()
	micro, macro := writeBars(t, dir, 600)
	db := filepath.Join(dir, "journal", "wf.db")

	cfgPath := filepath.Join(dir, "waterfall.yaml")
	cfg := fmt.Sprintf(`
market:
  symbol: BTCUSDT
  days: 1
strategy:
  warmup_bars: 50
journal:
  type: sqlite
  db_path: %s
`, db)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	xlsx := filepath.Join(dir, "out", "run.xlsx")
	org := filepath.Join(dir, "out", "run.org")
	prom := filepath.Join(dir, "out", "waterfall.prom")

	out, err := execute(t, "backtest", "--config", cfgPath, "--micro", micro, "--macro", macro,
		"--xlsx", xlsx, "--org", org, "--metrics", prom, "--trades", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "TRENDING")

	assert.FileExists(t, xlsx)
	assert.FileExists(t, org)
	assert.FileExists(t, db)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `waterfall_ticks_total{regime="NORMAL",symbol="BTCUSDT"}`)

	orgText, err := os.ReadFile(org)
	require.NoError(t, err)
	assert.Contains(t, string(orgText), ":DATASET:     "+micro+","+macro)

	out, err = execute(t, "journal", "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "1m/4h")
}

func TestBacktestFromCSVUsesDataSpanForTradesPerDay(t *testing.T) {
	dir := t.TempDir()
	// 50 warmup bars, then exactly two days of evaluated minutes
	micro, macro := writeBars(t, dir, 50+2*24*60+1)

	cfgPath := filepath.Join(dir, "waterfall.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("strategy:\n  warmup_bars: 50\n"), 0644))
	org := filepath.Join(dir, "run.org")

	_, err := execute(t, "backtest", "--config", cfgPath, "--micro", micro, "--macro", macro,
		"--org", org, "--journal", "none", "--trades", "-1")
	require.NoError(t, err)

	data, err := os.ReadFile(org)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "| Days      | 2.0 |")

	m := regexp.MustCompile(`:TRADES:\s+(\d+)`).FindStringSubmatch(text)
	require.Len(t, m, 2)
	trades, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.Contains(t, text, fmt.Sprintf("- Trades / Day:     *%.1f*", float64(trades)/2))
}

func TestBacktestMissingFile(t *testing.T) {
	_, err := execute(t, "backtest", "--micro", filepath.Join(t.TempDir(), "nope.csv"), "--journal", "none")
	require.Error(t, err)
}

func TestJournalTradeNotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "wf.db")
	_, err := execute(t, "journal", "trade", "01J00000000000000000000000", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err := execute(t, "journal", "day", "2024-03-04", "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "Trade:")

	_, err = execute(t, "journal", "day", "March 4", "--db", db)
	require.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
