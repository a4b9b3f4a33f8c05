// Package httpapi exposes the backtest engine over a small JSON HTTP API.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// BarSource supplies historical bars for a simulation; the feed client
// implements it.
type BarSource interface {
	Bars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)
}

// Server serves the backtest HTTP API.
type Server struct {
	registry *strategy.Registry
	bars     BarSource
	runs     store.RunStore // nil disables run persistence
	defaults backtest.Config
	log      *slog.Logger
}

// NewServer creates an API server. runs may be nil, in which case results
// are returned but not persisted.
func NewServer(registry *strategy.Registry, bars BarSource, runs store.RunStore, defaults backtest.Config) *Server {
	return &Server{
		registry: registry,
		bars:     bars,
		runs:     runs,
		defaults: defaults,
		log:      slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.registry.List()})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Symbol == "" || req.Strategy == "" {
		writeError(w, http.StatusBadRequest, "symbol and strategy are required")
		return
	}

	interval, err := domain.ParseInterval(req.Interval)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strat, err := s.registry.Build(req.Strategy, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.defaults
	if req.InitialCapital != nil {
		cfg.InitialCapital = *req.InitialCapital
	}
	if req.Commission != nil {
		cfg.Commission = *req.Commission
	}
	if req.StopLossPct != nil {
		cfg.StopLossPct = *req.StopLossPct
	}
	if req.SizingFrac != nil {
		cfg.SizingFrac = *req.SizingFrac
	}
	if req.AllowShorts != nil {
		cfg.AllowShorts = *req.AllowShorts
	}

	sim, err := backtest.NewSimulator(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.bars.Bars(r.Context(), req.Symbol, interval, start, end)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetching bars: "+err.Error())
		return
	}

	res, err := sim.Run(r.Context(), bars, strat)
	if err != nil {
		var mbe *domain.MalformedBarError
		if errors.As(err, &mbe) || errors.Is(err, domain.ErrEmptySeries) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := convertResult(res, interval)
	if s.runs != nil {
		id, err := s.runs.SaveRun(r.Context(), interval, res)
		if err != nil {
			s.log.Error("persisting run", "symbol", res.Symbol, "err", err)
		} else {
			resp.RunID = id
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run persistence disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]RunJSON, 0, len(runs))
	for _, rs := range runs {
		out = append(out, runJSON(rs))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run persistence disabled")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	report, err := s.runs.GetRunReport(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	trades, err := s.runs.GetRunTrades(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RunDetailResponse{
		Run:    runJSON(*run),
		Report: *report,
		Trades: make([]TradeJSON, 0, len(trades)),
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, tradeJSON(t))
	}
	writeJSON(w, resp)
}

func runJSON(rs store.RunSummary) RunJSON {
	return RunJSON{
		ID:          rs.ID,
		CreatedAt:   rs.CreatedAt,
		Symbol:      rs.Symbol,
		Strategy:    rs.Strategy,
		Interval:    rs.Interval,
		TotalTrades: rs.TotalTrades,
		WinRate:     rs.WinRate,
		TotalReturn: rs.TotalReturn,
		MaxDrawdown: rs.MaxDrawdown,
	}
}

// parseRange parses start/end strings as YYYY-MM-DD or RFC 3339 timestamps.
// An empty end defaults to now; an empty start is an error.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end := time.Now().UTC()
	if endStr != "" {
		if end, err = parseTime(endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", startStr, endStr)
	}
	return start, end, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t.UTC(), nil
}
