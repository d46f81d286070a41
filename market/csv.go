package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var barHeader = []string{"time", "open", "high", "low", "close", "volume"}

// ReadBarsCSV reads time,open,high,low,close,volume rows. The time column
// accepts RFC3339 or unix milliseconds. A header row is optional.
func ReadBarsCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var bars []Bar
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("line %d: bad row (need time,open,high,low,close,volume): %v", line, row)
		}

		t, err := parseBarTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", line, row[0], err)
		}

		var px [5]float64
		for i := 1; i <= 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s %q: %w", line, barHeader[i], row[i], err)
			}
			px[i-1] = v
		}
		bars = append(bars, NewBar(t, px[0], px[1], px[2], px[3], px[4]))
	}
}

// LoadBarsCSV reads a bar file from disk.
func LoadBarsCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// WriteBarsCSV writes bars with a header row, times as RFC3339 UTC.
func WriteBarsCSV(w io.Writer, bars []Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(barHeader); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Time.UTC().Format(time.RFC3339),
			f(b.Open),
			f(b.High),
			f(b.Low),
			f(b.Close),
			f(b.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveBarsCSV writes a bar file to disk.
func SaveBarsCSV(path string, bars []Bar) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBarsCSV(out, bars); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func parseBarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, err
		}
		t = t2
	}
	return t.UTC(), nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
