// Package store persists bar data and backtest results: Parquet files on
// disk for the bar cache, SQLite for the run history.
package store

import (
	"context"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars at the given interval.
	WriteBars(ctx context.Context, interval domain.Interval, bars []domain.Bar) error

	// ReadBars returns bars for the symbol and interval within [start, end],
	// sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with cached bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID          int64
	CreatedAt   time.Time
	Symbol      string
	Strategy    string
	Interval    string
	TotalTrades int
	WinRate     float64
	TotalReturn float64
	MaxDrawdown float64
}

// RunStore persists completed backtest runs and their trade ledgers.
type RunStore interface {
	// SaveRun persists a completed run and returns its assigned ID.
	SaveRun(ctx context.Context, interval domain.Interval, res *backtest.Result) (int64, error)

	// GetRun retrieves a run summary by ID.
	GetRun(ctx context.Context, id int64) (*RunSummary, error)

	// GetRunReport retrieves the full report of a run by ID.
	GetRunReport(ctx context.Context, id int64) (*backtest.Report, error)

	// GetRunTrades returns the trade ledger of a run in entry-time order.
	GetRunTrades(ctx context.Context, id int64) ([]domain.Trade, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
