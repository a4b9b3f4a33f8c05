package builtins

import (
	"fmt"
	"math"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACD)(nil)

// MACD trades crossings of the MACD line over its signal line: a cross up
// signals a long entry, a cross down signals a short entry. Between
// crossings, a MACD line on the wrong side of zero emits an Exit so an open
// position is not held through a fading trend.
type MACD struct {
	fast   int
	slow   int
	signal int
}

// NewMACD creates a MACD strategy, validating fast < slow and signal > 0.
func NewMACD(fast, slow, signal int) (*MACD, error) {
	if fast <= 0 || signal <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "macd", Reason: fmt.Sprintf("windows must be positive, got fast=%d signal=%d", fast, signal)}
	}
	if slow <= fast {
		return nil, &strategy.InvalidConfigError{
			Strategy: "macd",
			Reason:   fmt.Sprintf("slow window must exceed fast window, got fast=%d slow=%d", fast, slow),
		}
	}
	return &MACD{fast: fast, slow: slow, signal: signal}, nil
}

// NewMACDFromParams builds a MACD strategy from named parameters, with the
// defaults fast=12, slow=26, signal=9.
func NewMACDFromParams(p strategy.Params) (*MACD, error) {
	return NewMACD(int(p.Get("fast", 12)), int(p.Get("slow", 26)), int(p.Get("signal", 9)))
}

// Name returns "macd".
func (s *MACD) Name() string { return "macd" }

// MinBars returns the combined slow EMA and signal EMA warmup.
func (s *MACD) MinBars() int { return s.slow + s.signal }

// Evaluate returns the signal for the newest bar.
func (s *MACD) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	px := closes(history)
	macd, sig, _ := indicator.MACD(px, s.fast, s.slow, s.signal)
	i := len(px) - 1
	switch indicator.Crossover(macd, sig, i) {
	case 1:
		return domain.EnterLong, nil
	case -1:
		return domain.EnterShort, nil
	}
	// No cross this bar: a defined MACD line that has crossed zero against
	// the prevailing signal direction unwinds whatever is open. The exit is
	// side-neutral; the simulator ignores it when flat.
	if !math.IsNaN(macd[i]) && !math.IsNaN(sig[i]) {
		if (macd[i] < 0 && sig[i] > 0) || (macd[i] > 0 && sig[i] < 0) {
			return domain.Exit, nil
		}
	}
	return domain.Hold, nil
}
