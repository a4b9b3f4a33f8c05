package builtins

import (
	"fmt"
	"math"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*GoldenRatio)(nil)

// GoldenRatio is a Fibonacci retracement strategy over a rolling lookback
// window. A close retracing into the 0.618 pocket of the window's range
// signals a long entry; a close retracing 0.618 up from the low signals a
// short entry. Reaching the Fibonacci extension target emits an Exit.
//
// The window excludes the newest bar so the current close can be compared
// against levels it did not itself produce.
type GoldenRatio struct {
	lookback  int
	extension float64
}

// NewGoldenRatio creates a GoldenRatio strategy, validating its parameters.
func NewGoldenRatio(lookback int, extension float64) (*GoldenRatio, error) {
	if lookback <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "golden-ratio", Reason: fmt.Sprintf("lookback must be positive, got %d", lookback)}
	}
	if extension <= 1 {
		return nil, &strategy.InvalidConfigError{Strategy: "golden-ratio", Reason: fmt.Sprintf("extension target must exceed 1, got %.3f", extension)}
	}
	return &GoldenRatio{lookback: lookback, extension: extension}, nil
}

// NewGoldenRatioFromParams builds a GoldenRatio strategy from named
// parameters, with the defaults lookback=20, extension=1.618.
func NewGoldenRatioFromParams(p strategy.Params) (*GoldenRatio, error) {
	return NewGoldenRatio(int(p.Get("lookback", 20)), p.Get("extension", 1.618))
}

// Name returns "golden-ratio".
func (s *GoldenRatio) Name() string { return "golden-ratio" }

// MinBars returns the lookback window plus the bar under evaluation.
func (s *GoldenRatio) MinBars() int { return s.lookback + 1 }

// Evaluate returns the signal for the newest bar.
func (s *GoldenRatio) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	window := history[:len(history)-1]
	hi := indicator.Highest(highs(window), s.lookback)
	lo := indicator.Lowest(lows(window), s.lookback)
	h := hi[len(hi)-1]
	l := lo[len(lo)-1]
	if math.IsNaN(h) || math.IsNaN(l) || h <= l {
		return domain.Hold, nil
	}

	close := history[len(history)-1].Close
	rng := h - l
	longTarget := h + (s.extension-1)*rng  // 1.618 extension measured from the low
	shortTarget := l - (s.extension-1)*rng

	switch {
	case close >= longTarget || close <= shortTarget:
		return domain.Exit, nil
	case close <= h-0.618*rng:
		return domain.EnterLong, nil
	case close >= l+0.618*rng:
		return domain.EnterShort, nil
	}
	return domain.Hold, nil
}
