package builtins

import (
	"fmt"
	"math"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/indicator"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Ichimoku)(nil)

// Ichimoku signals a long entry when the tenkan line is above the kijun line
// and price closes above both senkou cloud spans, and a short entry on the
// fully mirrored condition. A full reversal of the alignment flips the
// position through the opposing-signal rule.
type Ichimoku struct {
	tenkan int
	kijun  int
	senkou int
	shift  int
}

// NewIchimoku creates an Ichimoku strategy, validating its window ordering.
func NewIchimoku(tenkan, kijun, senkou, shift int) (*Ichimoku, error) {
	if tenkan <= 0 || kijun <= 0 || senkou <= 0 || shift <= 0 {
		return nil, &strategy.InvalidConfigError{
			Strategy: "ichimoku",
			Reason:   fmt.Sprintf("all windows must be positive, got tenkan=%d kijun=%d senkou=%d shift=%d", tenkan, kijun, senkou, shift),
		}
	}
	if tenkan >= kijun || kijun >= senkou {
		return nil, &strategy.InvalidConfigError{
			Strategy: "ichimoku",
			Reason:   fmt.Sprintf("windows must satisfy tenkan < kijun < senkou, got %d/%d/%d", tenkan, kijun, senkou),
		}
	}
	return &Ichimoku{tenkan: tenkan, kijun: kijun, senkou: senkou, shift: shift}, nil
}

// NewIchimokuFromParams builds an Ichimoku strategy from named parameters,
// with the defaults tenkan=9, kijun=26, senkou=52, shift=26.
func NewIchimokuFromParams(p strategy.Params) (*Ichimoku, error) {
	return NewIchimoku(
		int(p.Get("tenkan", 9)),
		int(p.Get("kijun", 26)),
		int(p.Get("senkou", 52)),
		int(p.Get("shift", 26)),
	)
}

// Name returns "ichimoku".
func (s *Ichimoku) Name() string { return "ichimoku" }

// MinBars covers the senkou window plus the forward shift of the cloud.
func (s *Ichimoku) MinBars() int { return s.senkou + s.shift }

// Evaluate returns the signal for the newest bar.
func (s *Ichimoku) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) < s.MinBars() {
		return domain.Hold, strategy.ErrInsufficientHistory
	}
	hi := highs(history)
	lo := lows(history)
	i := len(history) - 1

	tenkan := midpoint(hi, lo, s.tenkan)
	kijun := midpoint(hi, lo, s.kijun)
	senkouB := midpoint(hi, lo, s.senkou)

	// The cloud spans are plotted shift bars ahead, so the span value in
	// effect now was computed shift bars ago.
	j := i - s.shift
	spanA := (tenkan[j] + kijun[j]) / 2
	spanB := senkouB[j]
	if math.IsNaN(tenkan[i]) || math.IsNaN(kijun[i]) || math.IsNaN(spanA) || math.IsNaN(spanB) {
		return domain.Hold, nil
	}

	close := history[i].Close
	bullish := tenkan[i] > kijun[i] && close > spanA && close > spanB
	bearish := tenkan[i] < kijun[i] && close < spanA && close < spanB
	switch {
	case bullish:
		return domain.EnterLong, nil
	case bearish:
		return domain.EnterShort, nil
	}
	return domain.Hold, nil
}

// midpoint returns (highest high + lowest low) / 2 over window p.
func midpoint(hi, lo []float64, p int) []float64 {
	hh := indicator.Highest(hi, p)
	ll := indicator.Lowest(lo, p)
	out := make([]float64, len(hi))
	for i := range out {
		out[i] = (hh[i] + ll[i]) / 2
	}
	return out
}
