package domain

import (
	"fmt"
	"time"
)

// Interval is the sampling interval of a price series.
type Interval string

const (
	Interval1Min   Interval = "1m"
	Interval5Min   Interval = "5m"
	Interval15Min  Interval = "15m"
	Interval30Min  Interval = "30m"
	IntervalHourly Interval = "1h"
	IntervalDaily  Interval = "1d"
	IntervalWeekly Interval = "1wk"
	IntervalMonth  Interval = "1mo"
)

// Intervals lists all supported intervals, shortest first.
var Intervals = []Interval{
	Interval1Min, Interval5Min, Interval15Min, Interval30Min,
	IntervalHourly, IntervalDaily, IntervalWeekly, IntervalMonth,
}

// ParseInterval returns the Interval for s, or an error for an unknown code.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range Intervals {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// BarDuration returns the nominal wall-clock length of one bar. Weekly and
// monthly bars use 7 and 30 days respectively.
func (iv Interval) BarDuration() time.Duration {
	switch iv {
	case Interval1Min:
		return time.Minute
	case Interval5Min:
		return 5 * time.Minute
	case Interval15Min:
		return 15 * time.Minute
	case Interval30Min:
		return 30 * time.Minute
	case IntervalHourly:
		return time.Hour
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	case IntervalMonth:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// MaxLookback returns how far back from now a data request for this interval
// may reach. Upstream feeds cap intraday history: one week of minute bars,
// roughly two months for the other intraday intervals, and four years for
// daily and coarser bars.
func (iv Interval) MaxLookback() time.Duration {
	switch iv {
	case Interval1Min:
		return 7 * 24 * time.Hour
	case Interval5Min, Interval15Min, Interval30Min, IntervalHourly:
		return 59 * 24 * time.Hour
	default:
		return 4 * 365 * 24 * time.Hour
	}
}

// ClampRange narrows [start, end] to the interval's maximum lookback from
// end. The returned range always satisfies start < end for valid input.
func (iv Interval) ClampRange(start, end time.Time) (time.Time, time.Time) {
	earliest := end.Add(-iv.MaxLookback())
	if start.Before(earliest) {
		start = earliest
	}
	return start, end
}
