// Package domain defines the core value types shared across the backtest
// engine: OHLCV bars, strategy signals, positions, closed trades, and
// equity-curve points.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Bar is a single OHLCV observation for one symbol at one interval.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// SignalType is the action a strategy recommends for the current bar.
type SignalType int

const (
	Hold SignalType = iota
	EnterLong
	EnterShort
	Exit
)

// String returns the lowercase name of the signal.
func (s SignalType) String() string {
	switch s {
	case Hold:
		return "hold"
	case EnterLong:
		return "enter_long"
	case EnterShort:
		return "enter_short"
	case Exit:
		return "exit"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// Side is the direction of market exposure.
type Side int

const (
	Flat Side = iota
	Long
	Short
)

// String returns the lowercase name of the side.
func (s Side) String() string {
	switch s {
	case Flat:
		return "flat"
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitSignal      ExitReason = "signal"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitEndOfSeries ExitReason = "end_of_series"
)

// Trade is the immutable record of one complete entry-to-exit cycle.
type Trade struct {
	Symbol          string
	Side            Side
	EntryTime       time.Time
	ExitTime        time.Time
	EntryPrice      float64
	ExitPrice       float64
	Size            float64
	ExitReason      ExitReason
	PnLPct          float64
	HoldingDuration time.Duration
}

// EquityPoint is one sample of the equity curve: realized cash plus the
// mark-to-market value of any open position at that bar's close.
type EquityPoint struct {
	Timestamp time.Time
	Cash      float64
	Value     float64
}

// SkippedSignal is a diagnostic for an entry signal the engine ignored,
// e.g. an enter_short while short selling is disabled.
type SkippedSignal struct {
	Timestamp time.Time
	Signal    SignalType
	Reason    string
}

// ErrEmptySeries is returned when a simulation is requested on zero bars.
var ErrEmptySeries = errors.New("empty price series")

// MalformedBarError identifies the first bar that violates the series
// invariants. The engine never repairs or drops bars: a malformed series is
// rejected whole to preserve temporal ordering guarantees.
type MalformedBarError struct {
	Index  int
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar at index %d: %s", e.Index, e.Reason)
}

// ValidateSeries checks the bar invariants: at least one bar, strictly
// increasing timestamps, and low ≤ {open, close} ≤ high for every bar.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		if b.Low > b.High {
			return &MalformedBarError{Index: i, Reason: fmt.Sprintf("low %.4f above high %.4f", b.Low, b.High)}
		}
		if b.Open < b.Low || b.Open > b.High {
			return &MalformedBarError{Index: i, Reason: fmt.Sprintf("open %.4f outside [low, high]", b.Open)}
		}
		if b.Close < b.Low || b.Close > b.High {
			return &MalformedBarError{Index: i, Reason: fmt.Sprintf("close %.4f outside [low, high]", b.Close)}
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return &MalformedBarError{Index: i, Reason: "timestamp not after previous bar"}
		}
	}
	return nil
}
