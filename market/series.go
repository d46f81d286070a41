package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrEmptySeries  = errors.New("empty bar series")
	ErrNonMonotonic = errors.New("bar timestamps not strictly increasing")
	ErrBadPrice     = errors.New("bad bar price")
)

// Validate checks the input contract of a bar series: at least one bar,
// strictly increasing timestamps, finite positive prices with
// low <= open, close <= high and a non-negative volume.
func Validate(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		at := b.Time.Format(time.RFC3339)
		if !AllDefined(b.Open, b.High, b.Low, b.Close, b.Volume) {
			return fmt.Errorf("bar %d (%s): %w: non-finite value", i, at, ErrBadPrice)
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): %w: non-positive price", i, at, ErrBadPrice)
		}
		if b.Low > b.High {
			return fmt.Errorf("bar %d (%s): %w: low %.8f > high %.8f", i, at, ErrBadPrice, b.Low, b.High)
		}
		if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
			return fmt.Errorf("bar %d (%s): %w: open/close outside [%.8f, %.8f]", i, at, ErrBadPrice, b.Low, b.High)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d (%s): %w: negative volume", i, at, ErrBadPrice)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d (%s): %w", i, at, ErrNonMonotonic)
		}
	}
	return nil
}

// Span returns the time between the first and last bar.
func Span(bars []Bar) time.Duration {
	if len(bars) < 2 {
		return 0
	}
	return bars[len(bars)-1].Time.Sub(bars[0].Time)
}

// Dedupe sorts bars by time and keeps the first bar seen for each timestamp.
// Exchanges return overlapping pages, so fetched data goes through here
// before it is validated.
func Dedupe(bars []Bar) []Bar {
	if len(bars) < 2 {
		return bars
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}
