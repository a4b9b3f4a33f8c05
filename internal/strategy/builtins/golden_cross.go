package builtins

import (
	"fmt"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*GoldenCross)(nil)

// GoldenCross is an EMA crossover strategy: a fast EMA crossing above the
// slow EMA signals a long entry, crossing below signals a short entry. The
// reverse cross unwinds an open position through the opposing-signal rule.
type GoldenCross struct {
	fast int
	slow int
}

// NewGoldenCross creates a GoldenCross strategy, validating fast < slow.
func NewGoldenCross(fast, slow int) (*GoldenCross, error) {
	if fast <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "golden-cross", Reason: fmt.Sprintf("fast window must be positive, got %d", fast)}
	}
	if slow <= fast {
		return nil, &strategy.InvalidConfigError{
			Strategy: "golden-cross",
			Reason:   fmt.Sprintf("slow window must exceed fast window, got fast=%d slow=%d", fast, slow),
		}
	}
	return &GoldenCross{fast: fast, slow: slow}, nil
}

// NewGoldenCrossFromParams builds a GoldenCross strategy from named
// parameters, with the defaults fast=50, slow=200.
func NewGoldenCrossFromParams(p strategy.Params) (*GoldenCross, error) {
	return NewGoldenCross(int(p.Get("fast", 50)), int(p.Get("slow", 200)))
}

// Name returns "golden-cross".
func (s *GoldenCross) Name() string { return "golden-cross" }

// MinBars returns the slow EMA warmup plus one bar for cross detection.
func (s *GoldenCross) MinBars() int { return s.slow + 1 }

// Evaluate returns the signal for the newest bar.
func (s *GoldenCross) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	px := closes(history)
	fast := indicator.EMA(px, s.fast)
	slow := indicator.EMA(px, s.slow)
	switch indicator.Crossover(fast, slow, len(px)-1) {
	case 1:
		return domain.EnterLong, nil
	case -1:
		return domain.EnterShort, nil
	}
	return domain.Hold, nil
}
