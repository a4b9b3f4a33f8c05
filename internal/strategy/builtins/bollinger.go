package builtins

import (
	"fmt"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Bollinger)(nil)

// Bollinger is a mean-reversion strategy on Bollinger bands: a close at or
// below the lower band signals a long entry, a close at or above the upper
// band signals a short entry. Each band doubles as the exit for the opposite
// side via the opposing-signal rule.
type Bollinger struct {
	period int
	devs   float64
}

// NewBollinger creates a Bollinger strategy, validating its parameters.
func NewBollinger(period int, devs float64) (*Bollinger, error) {
	if period <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "bollinger", Reason: fmt.Sprintf("period must be positive, got %d", period)}
	}
	if devs <= 0 {
		return nil, &strategy.InvalidConfigError{Strategy: "bollinger", Reason: fmt.Sprintf("stddev factor must be positive, got %.2f", devs)}
	}
	return &Bollinger{period: period, devs: devs}, nil
}

// NewBollingerFromParams builds a Bollinger strategy from named parameters,
// with the defaults period=20, devs=2.
func NewBollingerFromParams(p strategy.Params) (*Bollinger, error) {
	return NewBollinger(int(p.Get("period", 20)), p.Get("devs", 2))
}

// Name returns "bollinger".
func (s *Bollinger) Name() string { return "bollinger" }

// MinBars returns the rolling-window warmup length.
func (s *Bollinger) MinBars() int { return s.period }

// Evaluate returns the signal for the newest bar.
func (s *Bollinger) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	px := closes(history)
	mean, std := indicator.MeanStd(px, s.period)
	i := len(px) - 1
	upper := mean[i] + s.devs*std[i]
	lower := mean[i] - s.devs*std[i]
	switch {
	case px[i] <= lower:
		return domain.EnterLong, nil
	case px[i] >= upper:
		return domain.EnterShort, nil
	}
	return domain.Hold, nil
}
