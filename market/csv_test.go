package market

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsCSV(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close,volume
2024-01-01T00:00:00Z,100,101,99,100.5,12
1704067260000,100.5,102,100,101.5,3.25
`
	bars, err := ReadBarsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, t0, bars[0].Time)
	assert.Equal(t, t0.Add(time.Minute), bars[1].Time)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.Equal(t, 3.25, bars[1].Volume)
	assert.False(t, Defined(bars[0].RSI))
}

func TestReadBarsCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadBarsCSV(strings.NewReader("2024-01-01T00:00:00Z,1,2,3\n"))
	assert.Error(t, err)

	_, err = ReadBarsCSV(strings.NewReader("yesterday,1,2,3,4,5\n"))
	assert.Error(t, err)

	_, err = ReadBarsCSV(strings.NewReader("2024-01-01T00:00:00Z,1,2,x,4,5\n"))
	assert.Error(t, err)
}

func TestBarsCSVFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	bars := mkBars(3, time.Minute)
	require.NoError(t, SaveBarsCSV(path, bars))

	got, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range bars {
		assert.Equal(t, bars[i].Time, got[i].Time)
		assert.Equal(t, bars[i].Close, got[i].Close)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBarsCSV(&buf, bars[:1]))
	assert.Equal(t, "time,open,high,low,close,volume\n2024-01-01T00:00:00Z,100,101,99,100.5,10\n", buf.String())
}
