// Package backtest replays a historical price series through a strategy,
// tracks the resulting position and portfolio state bar by bar, and reports
// trade-level and aggregate performance.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Config holds the portfolio-level simulation parameters.
type Config struct {
	InitialCapital float64 // starting cash balance
	Commission     float64 // per-side commission rate on traded notional
	StopLossPct    float64 // stop distance from entry; 0 disables stops
	SizingFrac     float64 // fraction of cash committed per entry
	AllowShorts    bool
}

// DefaultConfig mirrors the defaults the desktop tool seeds its inputs with.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100_000,
		Commission:     0.001,
		SizingFrac:     0.8,
	}
}

// Validate rejects parameter values before any simulation starts.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", c.InitialCapital)
	}
	if c.Commission < 0 {
		return fmt.Errorf("commission must not be negative, got %.4f", c.Commission)
	}
	if c.StopLossPct < 0 {
		return fmt.Errorf("stop-loss percentage must not be negative, got %.4f", c.StopLossPct)
	}
	if c.SizingFrac <= 0 || c.SizingFrac > 1 {
		return fmt.Errorf("sizing fraction must be in (0, 1], got %.4f", c.SizingFrac)
	}
	return nil
}

// Result is the complete outcome of one simulation run: the trade ledger in
// entry-time order, one equity point per bar, skipped-signal diagnostics,
// and the aggregate report.
type Result struct {
	Symbol   string
	Strategy string
	Config   Config
	Trades   []domain.Trade
	Equity   []domain.EquityPoint
	Skipped  []domain.SkippedSignal
	Report   Report
}

// Simulator drives a price series through a strategy and the position state
// machine. A Simulator is stateless across runs and safe for concurrent use;
// each Run owns its position, ledger, and equity curve exclusively.
type Simulator struct {
	cfg Config
	log *slog.Logger
}

// NewSimulator validates the configuration and returns a ready Simulator.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		cfg: cfg,
		log: slog.Default().With("component", "simulator"),
	}, nil
}

// Run replays bars (oldest first) through strat. The loop is a strict
// sequential fold: the strategy only ever sees the prefix up to and
// including the current bar. Any position still open at series end is
// force-closed at the final close so every run yields a reconciled ledger.
func (s *Simulator) Run(ctx context.Context, bars []domain.Bar, strat strategy.Strategy) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := domain.ValidateSeries(bars); err != nil {
		return nil, err
	}

	res := &Result{
		Symbol:   bars[0].Symbol,
		Strategy: strat.Name(),
		Config:   s.cfg,
		Equity:   make([]domain.EquityPoint, 0, len(bars)),
	}

	cash := s.cfg.InitialCapital
	var pos position

	for i, bar := range bars {
		sig, err := strat.Evaluate(bars[:i+1])
		if err != nil {
			if !errors.Is(err, strategy.ErrInsufficientHistory) {
				return nil, fmt.Errorf("evaluating %s at bar %d: %w", strat.Name(), i, err)
			}
			sig = domain.Hold
		}

		lastBar := i == len(bars)-1
		trade, skipped := pos.step(bar, sig, s.cfg.StopLossPct, s.cfg.SizingFrac, cash, s.cfg.AllowShorts, lastBar)
		if skipped != nil {
			res.Skipped = append(res.Skipped, *skipped)
		}
		if trade != nil {
			cash += s.settle(res, trade)
		}

		// A position that survived to the final bar is closed at its close.
		if lastBar && pos.side != domain.Flat {
			t := pos.close(bar.Timestamp, bar.Close, domain.ExitEndOfSeries)
			cash += s.settle(res, t)
		}

		res.Equity = append(res.Equity, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Cash:      cash,
			Value:     cash + pos.unrealized(bar.Close),
		})
	}

	res.Report = BuildReport(s.cfg.InitialCapital, res.Trades, res.Equity, res.Skipped)

	s.log.Debug("run complete",
		"symbol", res.Symbol,
		"strategy", res.Strategy,
		"bars", len(bars),
		"trades", len(res.Trades),
		"totalReturn", res.Report.TotalReturn,
	)
	return res, nil
}

// settle appends the trade to the ledger and returns the realized cash
// delta: gross P&L minus both commission legs.
func (s *Simulator) settle(res *Result, t *domain.Trade) float64 {
	t.Symbol = res.Symbol
	res.Trades = append(res.Trades, *t)

	gross := t.PnLPct * t.EntryPrice * t.Size
	fees := s.cfg.Commission * t.Size * (t.EntryPrice + t.ExitPrice)
	return gross - fees
}
