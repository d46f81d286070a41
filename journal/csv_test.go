package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	recs, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 1)
	assert.Equal(t, tradeHeader, trades[0])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 1)
	assert.Equal(t, []string{"run_id", "time", "balance", "equity"}, equity[0])
}

func TestCSVJournalRecordResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, RecordResult(j, "RUN1", "ETHUSDT", testResult()))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 3)
	row := trades[1]
	assert.Len(t, row[0], 26)
	assert.Equal(t, "RUN1", row[1])
	assert.Equal(t, "ETHUSDT", row[2])
	assert.Equal(t, "9.500000", row[3])
	assert.Equal(t, "100.000000", row[4])
	assert.Equal(t, "104.000000", row[5])
	assert.Equal(t, "2024-01-02T03:00:00Z", row[6])
	assert.Equal(t, "2024-01-02T04:30:00Z", row[7])
	assert.Equal(t, "36.800000", row[10])
	assert.Equal(t, "TAKE_PROFIT", row[12])
	assert.Equal(t, "TRENDING", row[13])
	assert.Equal(t, "STOP_LOSS", trades[2][12])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 4)
	assert.Equal(t, []string{"RUN1", "2024-01-02T03:00:00Z", "1000.000000", "1000.000000"}, equity[1])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "trades.csv"), filepath.Join(dir, "equity.csv"))
	assert.Error(t, err)

	_, err = NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "missing", "equity.csv"))
	assert.Error(t, err)
}
