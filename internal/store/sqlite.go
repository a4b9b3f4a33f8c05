package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at      TEXT    NOT NULL,
	symbol          TEXT    NOT NULL,
	strategy        TEXT    NOT NULL,
	interval        TEXT    NOT NULL,
	initial_capital REAL    NOT NULL,
	commission      REAL    NOT NULL,
	stop_loss_pct   REAL    NOT NULL,
	sizing_frac     REAL    NOT NULL,
	allow_shorts    INTEGER NOT NULL,
	total_trades    INTEGER NOT NULL,
	win_rate        REAL    NOT NULL,
	total_return    REAL    NOT NULL,
	max_drawdown    REAL    NOT NULL,
	report_json     TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS run_trades (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	symbol      TEXT    NOT NULL,
	side        TEXT    NOT NULL,
	entry_time  TEXT    NOT NULL,
	exit_time   TEXT    NOT NULL,
	entry_price REAL    NOT NULL,
	exit_price  REAL    NOT NULL,
	size        REAL    NOT NULL,
	exit_reason TEXT    NOT NULL,
	pnl_pct     REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a completed run and its trade ledger atomically.
func (s *SQLiteStore) SaveRun(ctx context.Context, interval domain.Interval, res *backtest.Result) (int64, error) {
	reportJSON, err := json.Marshal(res.Report)
	if err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			created_at, symbol, strategy, interval,
			initial_capital, commission, stop_loss_pct, sizing_frac, allow_shorts,
			total_trades, win_rate, total_return, max_drawdown, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		res.Symbol, res.Strategy, string(interval),
		res.Config.InitialCapital, res.Config.Commission, res.Config.StopLossPct,
		res.Config.SizingFrac, res.Config.AllowShorts,
		res.Report.TotalTrades, res.Report.WinRate, res.Report.TotalReturn,
		res.Report.MaxDrawdown, string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, t := range res.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_trades (
				run_id, symbol, side, entry_time, exit_time,
				entry_price, exit_price, size, exit_reason, pnl_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, t.Symbol, t.Side.String(),
			t.EntryTime.UTC().Format(time.RFC3339Nano),
			t.ExitTime.UTC().Format(time.RFC3339Nano),
			t.EntryPrice, t.ExitPrice, t.Size, string(t.ExitReason), t.PnLPct,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// GetRun retrieves a run summary by ID, or sql.ErrNoRows when absent.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, symbol, strategy, interval,
		       total_trades, win_rate, total_return, max_drawdown
		FROM runs WHERE id = ?`, id)
	return scanRunSummary(row)
}

// GetRunReport retrieves the full report of a run by ID.
func (s *SQLiteStore) GetRunReport(ctx context.Context, id int64) (*backtest.Report, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM runs WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var rep backtest.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, fmt.Errorf("decoding report for run %d: %w", id, err)
	}
	return &rep, nil
}

// GetRunTrades returns the trade ledger of a run in entry-time order.
func (s *SQLiteStore) GetRunTrades(ctx context.Context, id int64) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, side, entry_time, exit_time,
		       entry_price, exit_price, size, exit_reason, pnl_pct
		FROM run_trades WHERE run_id = ? ORDER BY entry_time, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, reason, entry, exit string
		if err := rows.Scan(&t.Symbol, &side, &entry, &exit,
			&t.EntryPrice, &t.ExitPrice, &t.Size, &reason, &t.PnLPct); err != nil {
			return nil, err
		}
		if t.EntryTime, err = time.Parse(time.RFC3339Nano, entry); err != nil {
			return nil, fmt.Errorf("parsing entry time: %w", err)
		}
		if t.ExitTime, err = time.Parse(time.RFC3339Nano, exit); err != nil {
			return nil, fmt.Errorf("parsing exit time: %w", err)
		}
		t.Side = sideFromString(side)
		t.ExitReason = domain.ExitReason(reason)
		t.HoldingDuration = t.ExitTime.Sub(t.EntryTime)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, symbol, strategy, interval,
		       total_trades, win_rate, total_return, max_drawdown
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		rs, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rs)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (*RunSummary, error) {
	var rs RunSummary
	var created string
	err := row.Scan(&rs.ID, &created, &rs.Symbol, &rs.Strategy, &rs.Interval,
		&rs.TotalTrades, &rs.WinRate, &rs.TotalReturn, &rs.MaxDrawdown)
	if err != nil {
		return nil, err
	}
	if rs.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &rs, nil
}

func sideFromString(s string) domain.Side {
	switch s {
	case "long":
		return domain.Long
	case "short":
		return domain.Short
	}
	return domain.Flat
}
