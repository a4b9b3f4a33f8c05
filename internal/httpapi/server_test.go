package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/strategy"
	"github.com/mchia/Backtest-Tool/internal/strategy/builtins"
)

// alwaysLong enters on the first bar and holds to the end.
type alwaysLong struct{}

func (alwaysLong) Name() string { return "always-long" }
func (alwaysLong) MinBars() int { return 1 }
func (alwaysLong) Evaluate(history []domain.Bar) (domain.SignalType, error) {
	if len(history) == 1 {
		return domain.EnterLong, nil
	}
	return domain.Hold, nil
}

type stubBars struct {
	bars []domain.Bar
	err  error
}

func (s *stubBars) Bars(context.Context, string, domain.Interval, time.Time, time.Time) ([]domain.Bar, error) {
	return s.bars, s.err
}

func risingBars(n int) []domain.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol:    "AAPL",
			Timestamp: base.AddDate(0, 0, i),
			Open:      px,
			High:      px + 1,
			Low:       px - 1,
			Close:     px,
			Volume:    1000,
		}
	}
	return bars
}

func newTestServer(t *testing.T, withRuns bool) (*Server, store.RunStore) {
	t.Helper()
	reg := strategy.NewRegistry()
	builtins.RegisterAll(reg)
	reg.Register("always-long", func(strategy.Params) (strategy.Strategy, error) {
		return alwaysLong{}, nil
	})

	var runs store.RunStore
	if withRuns {
		st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "bt.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		runs = st
	}

	return NewServer(reg, &stubBars{bars: risingBars(10)}, runs, backtest.DefaultConfig()), runs
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return rec
}

func TestHandleStrategies(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var resp StrategiesResponse
	rec := doJSON(t, srv.Handler(), "GET", "/api/strategies", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(resp.Strategies) < 6 {
		t.Fatalf("got %d strategies, want at least the 6 builtins", len(resp.Strategies))
	}
	for i := 1; i < len(resp.Strategies); i++ {
		if resp.Strategies[i-1] >= resp.Strategies[i] {
			t.Errorf("strategies not sorted: %v", resp.Strategies)
		}
	}
}

func TestHandleBacktest(t *testing.T) {
	srv, _ := newTestServer(t, true)

	body := `{
		"symbol": "AAPL",
		"interval": "1d",
		"start": "2024-01-02",
		"end": "2024-01-12",
		"strategy": "always-long",
		"commission": 0
	}`
	var resp BacktestResponse
	rec := doJSON(t, srv.Handler(), "POST", "/api/backtest", body, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if resp.RunID == 0 {
		t.Error("expected persisted run id")
	}
	if resp.Symbol != "AAPL" || resp.Strategy != "always-long" || resp.Interval != "1d" {
		t.Errorf("response header = %s/%s/%s", resp.Symbol, resp.Strategy, resp.Interval)
	}
	if resp.Bars != 10 || len(resp.Equity) != 10 {
		t.Errorf("bars = %d, equity = %d, want 10/10", resp.Bars, len(resp.Equity))
	}
	if len(resp.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(resp.Trades))
	}
	if resp.Trades[0].ExitReason != string(domain.ExitEndOfSeries) {
		t.Errorf("exit reason = %q, want end_of_series", resp.Trades[0].ExitReason)
	}
	if resp.Report.TotalTrades != 1 {
		t.Errorf("report total trades = %d, want 1", resp.Report.TotalTrades)
	}
}

func TestHandleBacktestValidation(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing symbol", `{"interval":"1d","start":"2024-01-02","strategy":"rsi"}`},
		{"bad interval", `{"symbol":"AAPL","interval":"2d","start":"2024-01-02","strategy":"rsi"}`},
		{"unknown strategy", `{"symbol":"AAPL","interval":"1d","start":"2024-01-02","strategy":"nope"}`},
		{"bad params", `{"symbol":"AAPL","interval":"1d","start":"2024-01-02","strategy":"rsi","params":{"period":0}}`},
		{"start after end", `{"symbol":"AAPL","interval":"1d","start":"2024-02-02","end":"2024-01-02","strategy":"rsi"}`},
		{"bad config", `{"symbol":"AAPL","interval":"1d","start":"2024-01-02","strategy":"rsi","sizingFrac":2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, "POST", "/api/backtest", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleRuns(t *testing.T) {
	srv, _ := newTestServer(t, true)
	h := srv.Handler()

	body := `{"symbol":"AAPL","interval":"1d","start":"2024-01-02","end":"2024-01-12","strategy":"always-long"}`
	var bt BacktestResponse
	if rec := doJSON(t, h, "POST", "/api/backtest", body, &bt); rec.Code != http.StatusOK {
		t.Fatalf("backtest status = %d", rec.Code)
	}

	var runs []RunJSON
	if rec := doJSON(t, h, "GET", "/api/runs", "", &runs); rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if len(runs) != 1 || runs[0].ID != bt.RunID {
		t.Fatalf("runs = %+v, want single run %d", runs, bt.RunID)
	}

	var detail RunDetailResponse
	if rec := doJSON(t, h, "GET", "/api/runs/1", "", &detail); rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	if detail.Run.Symbol != "AAPL" || len(detail.Trades) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	if rec := doJSON(t, h, "GET", "/api/runs/999", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/api/runs/abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestRunsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, false)
	if rec := doJSON(t, srv.Handler(), "GET", "/api/runs", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when persistence is disabled", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := doJSON(t, srv.Handler(), "OPTIONS", "/api/strategies", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
