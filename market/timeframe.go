package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeframe converts an exchange style timeframe ("1m", "4h", "1d",
// "1w") or the Dukascopy/MetaTrader style ("M1", "H4", "D1") to a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	s := strings.TrimSpace(tf)
	if len(s) < 2 {
		return 0, fmt.Errorf("unsupported timeframe string: %q", tf)
	}

	var unit byte
	var num string
	switch {
	case s[0] >= '0' && s[0] <= '9':
		unit, num = s[len(s)-1], s[:len(s)-1]
	default:
		unit, num = s[0], s[1:]
		switch unit {
		case 'M':
			unit = 'm'
		case 'H':
			unit = 'h'
		case 'D':
			unit = 'd'
		case 'W':
			unit = 'w'
		}
	}

	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported timeframe string: %q", tf)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %q", tf)
	}
}

// TimeframeString maps a duration back to the exchange style ("1m", "4h").
func TimeframeString(d time.Duration) (string, error) {
	if d <= 0 || d%time.Minute != 0 {
		return "", fmt.Errorf("cannot map timeframe: %s", d)
	}

	day := 24 * time.Hour
	switch {
	case d%(7*day) == 0:
		return fmt.Sprintf("%dw", d/(7*day)), nil
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day), nil
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour), nil
	default:
		return fmt.Sprintf("%dm", d/time.Minute), nil
	}
}
