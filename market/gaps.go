package market

import "time"

// Gap is a run of missing bars in a series sampled at a fixed timeframe.
type Gap struct {
	After   time.Time // time of the last bar before the gap
	Missing int       // number of missing intervals
	Kind    string    // "minor", "suspicious" or "weekend"
}

// FindGaps scans a time-ordered series for missing intervals. Crypto
// markets trade around the clock, so anything longer than a few bars is
// worth reporting before a backtest trusts the data.
func FindGaps(bars []Bar, tf time.Duration) []Gap {
	if tf <= 0 {
		return nil
	}

	var gaps []Gap
	for i := 1; i < len(bars); i++ {
		step := bars[i].Time.Sub(bars[i-1].Time)
		if step <= tf {
			continue
		}
		missing := int(step/tf) - 1
		if missing <= 0 {
			continue
		}
		gaps = append(gaps, Gap{
			After:   bars[i-1].Time,
			Missing: missing,
			Kind:    classifyGap(bars[i-1].Time, time.Duration(missing)*tf),
		})
	}
	return gaps
}

func classifyGap(start time.Time, length time.Duration) string {
	wd := start.UTC().Weekday()

	// Weekend-ish if gap >= 24h and starts Fri/Sat/Sun (UTC heuristic)
	if length >= 24*time.Hour {
		if wd == time.Friday || wd == time.Saturday || wd == time.Sunday {
			return "weekend"
		}
		return "suspicious"
	}

	if length >= 10*time.Minute {
		return "suspicious"
	}
	return "minor"
}
