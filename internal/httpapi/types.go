package httpapi

import (
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"
)

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// BacktestRequest is the body of POST /api/backtest. Optional portfolio
// fields fall back to the server's configured defaults when omitted.
type BacktestRequest struct {
	Symbol   string             `json:"symbol"`
	Interval string             `json:"interval"`
	Start    string             `json:"start"` // YYYY-MM-DD or RFC 3339
	End      string             `json:"end"`
	Strategy string             `json:"strategy"`
	Params   map[string]float64 `json:"params,omitempty"`

	InitialCapital *float64 `json:"initialCapital,omitempty"`
	Commission     *float64 `json:"commission,omitempty"`
	StopLossPct    *float64 `json:"stopLossPct,omitempty"`
	SizingFrac     *float64 `json:"sizingFrac,omitempty"`
	AllowShorts    *bool    `json:"allowShorts,omitempty"`
}

// TradeJSON is one closed trade in a backtest response.
type TradeJSON struct {
	Side       string    `json:"side"`
	EntryTime  time.Time `json:"entryTime"`
	ExitTime   time.Time `json:"exitTime"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Size       float64   `json:"size"`
	ExitReason string    `json:"exitReason"`
	PnLPct     float64   `json:"pnlPct"`
	HoldingHrs float64   `json:"holdingHours"`
}

// EquityPointJSON is one equity-curve sample in a backtest response.
type EquityPointJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Cash      float64   `json:"cash"`
	Value     float64   `json:"value"`
}

// SkippedJSON is one ignored entry signal in a backtest response.
type SkippedJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Signal    string    `json:"signal"`
	Reason    string    `json:"reason"`
}

// BacktestResponse is the body returned by POST /api/backtest.
type BacktestResponse struct {
	RunID    int64             `json:"runId,omitempty"`
	Symbol   string            `json:"symbol"`
	Strategy string            `json:"strategy"`
	Interval string            `json:"interval"`
	Bars     int               `json:"bars"`
	Report   backtest.Report   `json:"report"`
	Trades   []TradeJSON       `json:"trades"`
	Equity   []EquityPointJSON `json:"equity"`
	Skipped  []SkippedJSON     `json:"skipped,omitempty"`
}

// RunJSON is one row of GET /api/runs.
type RunJSON struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Symbol      string    `json:"symbol"`
	Strategy    string    `json:"strategy"`
	Interval    string    `json:"interval"`
	TotalTrades int       `json:"totalTrades"`
	WinRate     float64   `json:"winRate"`
	TotalReturn float64   `json:"totalReturn"`
	MaxDrawdown float64   `json:"maxDrawdown"`
}

// RunDetailResponse is the body of GET /api/runs/{id}.
type RunDetailResponse struct {
	Run    RunJSON         `json:"run"`
	Report backtest.Report `json:"report"`
	Trades []TradeJSON     `json:"trades"`
}

func tradeJSON(t domain.Trade) TradeJSON {
	return TradeJSON{
		Side:       t.Side.String(),
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Size:       t.Size,
		ExitReason: string(t.ExitReason),
		PnLPct:     t.PnLPct,
		HoldingHrs: t.HoldingDuration.Hours(),
	}
}

func convertResult(res *backtest.Result, interval domain.Interval) BacktestResponse {
	resp := BacktestResponse{
		Symbol:   res.Symbol,
		Strategy: res.Strategy,
		Interval: string(interval),
		Bars:     len(res.Equity),
		Report:   res.Report,
		Trades:   make([]TradeJSON, 0, len(res.Trades)),
		Equity:   make([]EquityPointJSON, 0, len(res.Equity)),
	}
	for _, t := range res.Trades {
		resp.Trades = append(resp.Trades, tradeJSON(t))
	}
	for _, p := range res.Equity {
		resp.Equity = append(resp.Equity, EquityPointJSON{Timestamp: p.Timestamp, Cash: p.Cash, Value: p.Value})
	}
	for _, s := range res.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedJSON{Timestamp: s.Timestamp, Signal: s.Signal.String(), Reason: s.Reason})
	}
	return resp
}
