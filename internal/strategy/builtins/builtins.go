// Package builtins provides the built-in strategy implementations that ship
// with the backtest tool.
package builtins

import (
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// RegisterAll adds every built-in strategy factory to the registry.
func RegisterAll(r *strategy.Registry) {
	r.Register("rsi", func(p strategy.Params) (strategy.Strategy, error) { return NewRSIFromParams(p) })
	r.Register("golden-cross", func(p strategy.Params) (strategy.Strategy, error) { return NewGoldenCrossFromParams(p) })
	r.Register("bollinger", func(p strategy.Params) (strategy.Strategy, error) { return NewBollingerFromParams(p) })
	r.Register("macd", func(p strategy.Params) (strategy.Strategy, error) { return NewMACDFromParams(p) })
	r.Register("ichimoku", func(p strategy.Params) (strategy.Strategy, error) { return NewIchimokuFromParams(p) })
	r.Register("golden-ratio", func(p strategy.Params) (strategy.Strategy, error) { return NewGoldenRatioFromParams(p) })
}

func closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highs(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
