package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"
)

func dayBar(symbol string, day int, px float64) domain.Bar {
	return domain.Bar{
		Symbol:    symbol,
		Timestamp: time.Date(2024, 1, 2+day, 0, 0, 0, 0, time.UTC),
		Open:      px,
		High:      px + 1,
		Low:       px - 1,
		Close:     px,
		Volume:    1000,
	}
}

func TestParquetBarPath(t *testing.T) {
	ps := NewParquetStore("/data")
	got := ps.barPath("aapl", domain.IntervalDaily, 2024)
	want := filepath.Join("/data", "bars", "AAPL", "1d", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		dayBar("AAPL", 0, 100),
		dayBar("AAPL", 1, 101),
		dayBar("AAPL", 2, 102),
	}
	if err := ps.WriteBars(ctx, domain.IntervalDaily, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", domain.IntervalDaily,
		bars[0].Timestamp, bars[2].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d bars, want 3", len(got))
	}
	for i := range got {
		if !got[i].Timestamp.Equal(bars[i].Timestamp) {
			t.Errorf("bar %d timestamp = %v, want %v", i, got[i].Timestamp, bars[i].Timestamp)
		}
		if got[i].Close != bars[i].Close {
			t.Errorf("bar %d close = %v, want %v", i, got[i].Close, bars[i].Close)
		}
	}

	// Range filter excludes bars outside [start, end].
	got, err = ps.ReadBars(ctx, "AAPL", domain.IntervalDaily,
		bars[1].Timestamp, bars[1].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Close != 101 {
		t.Fatalf("range filter returned %v, want single bar at 101", got)
	}
}

func TestParquetMergeOnRewrite(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := ps.WriteBars(ctx, domain.IntervalDaily, []domain.Bar{
		dayBar("AAPL", 0, 100),
		dayBar("AAPL", 1, 101),
	}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Overlapping rewrite: day 1 corrected, day 2 appended.
	corrected := dayBar("AAPL", 1, 150)
	if err := ps.WriteBars(ctx, domain.IntervalDaily, []domain.Bar{
		corrected,
		dayBar("AAPL", 2, 102),
	}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", domain.IntervalDaily,
		dayBar("AAPL", 0, 0).Timestamp, dayBar("AAPL", 2, 0).Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d bars after merge, want 3", len(got))
	}
	if got[1].Close != 150 {
		t.Errorf("merged bar close = %v, want incoming record to win (150)", got[1].Close)
	}
}

func TestParquetListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if syms, err := ps.ListSymbols(ctx); err != nil || len(syms) != 0 {
		t.Fatalf("empty store: got %v, %v", syms, err)
	}

	if err := ps.WriteBars(ctx, domain.IntervalDaily, []domain.Bar{
		dayBar("MSFT", 0, 100),
		dayBar("AAPL", 0, 100),
	}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	syms, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("ListSymbols = %v, want [AAPL MSFT]", syms)
	}
}

func sampleResult() *backtest.Result {
	entry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	exit := entry.AddDate(0, 0, 5)
	trades := []domain.Trade{{
		Symbol:          "AAPL",
		Side:            domain.Long,
		EntryTime:       entry,
		ExitTime:        exit,
		EntryPrice:      100,
		ExitPrice:       110,
		Size:            800,
		ExitReason:      domain.ExitSignal,
		PnLPct:          0.10,
		HoldingDuration: exit.Sub(entry),
	}}
	equity := []domain.EquityPoint{
		{Timestamp: entry, Cash: 100_000, Value: 100_000},
		{Timestamp: exit, Cash: 108_000, Value: 108_000},
	}
	return &backtest.Result{
		Symbol:   "AAPL",
		Strategy: "rsi",
		Config:   backtest.Config{InitialCapital: 100_000, Commission: 0.001, SizingFrac: 0.8},
		Trades:   trades,
		Equity:   equity,
		Report:   backtest.BuildReport(100_000, trades, equity, nil),
	}
}

func TestSQLiteSaveAndGetRun(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bt.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	res := sampleResult()
	id, err := st.SaveRun(ctx, domain.IntervalDaily, res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	rs, err := st.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rs.Symbol != "AAPL" || rs.Strategy != "rsi" || rs.Interval != "1d" {
		t.Errorf("summary = %+v, want AAPL/rsi/1d", rs)
	}
	if rs.TotalTrades != 1 {
		t.Errorf("total trades = %d, want 1", rs.TotalTrades)
	}

	rep, err := st.GetRunReport(ctx, id)
	if err != nil {
		t.Fatalf("GetRunReport: %v", err)
	}
	if math.Abs(rep.TotalReturn-res.Report.TotalReturn) > 1e-9 {
		t.Errorf("report total return = %v, want %v", rep.TotalReturn, res.Report.TotalReturn)
	}

	trades, err := st.GetRunTrades(ctx, id)
	if err != nil {
		t.Fatalf("GetRunTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	want := res.Trades[0]
	if tr.Side != want.Side || tr.ExitReason != want.ExitReason {
		t.Errorf("trade = %+v, want side/reason of %+v", tr, want)
	}
	if !tr.EntryTime.Equal(want.EntryTime) || !tr.ExitTime.Equal(want.ExitTime) {
		t.Errorf("trade times = %v/%v, want %v/%v", tr.EntryTime, tr.ExitTime, want.EntryTime, want.ExitTime)
	}
	if tr.HoldingDuration != want.HoldingDuration {
		t.Errorf("holding = %v, want %v", tr.HoldingDuration, want.HoldingDuration)
	}
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bt.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := st.SaveRun(ctx, domain.IntervalDaily, sampleResult()); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("runs not newest first: %d then %d", runs[0].ID, runs[1].ID)
	}
}

func TestSQLiteGetRunMissing(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bt.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	if _, err := st.GetRun(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing run")
	}
}
