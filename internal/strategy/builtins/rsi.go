package builtins

import (
	"fmt"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSI)(nil)

// RSI signals long entries when the relative strength index drops below the
// oversold band and short entries when it rises above the overbought band.
// An open long is unwound by the overbought condition (opposing signal) and
// vice versa.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates an RSI strategy, validating its parameter constraints.
func NewRSI(period int, oversold, overbought float64) (*RSI, error) {
	if period <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "rsi", Reason: fmt.Sprintf("period must be positive, got %d", period)}
	}
	if oversold < 0 || overbought > 100 || oversold >= overbought {
		return nil, &strategy.InvalidConfigError{
			Strategy: "rsi",
			Reason:   fmt.Sprintf("bands must satisfy 0 <= oversold < overbought <= 100, got %.1f/%.1f", oversold, overbought),
		}
	}
	return &RSI{period: period, oversold: oversold, overbought: overbought}, nil
}

// NewRSIFromParams builds an RSI strategy from named parameters, with the
// defaults period=14, oversold=30, overbought=70.
func NewRSIFromParams(p strategy.Params) (*RSI, error) {
	return NewRSI(
		int(p.Get("period", 14)),
		p.Get("oversold", 30),
		p.Get("overbought", 70),
	)
}

// Name returns "rsi".
func (s *RSI) Name() string { return "rsi" }

// MinBars returns the RSI warmup length.
func (s *RSI) MinBars() int { return s.period + 1 }

// Evaluate returns the signal for the newest bar.
func (s *RSI) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	rsi := indicator.RSI(closes(history), s.period)
	cur := rsi[len(rsi)-1]
	switch {
	case cur < s.oversold:
		return domain.EnterLong, nil
	case cur > s.overbought:
		return domain.EnterShort, nil
	}
	return domain.Hold, nil
}
