package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/config"
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/feed"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/strategy"
	"github.com/mchia/Backtest-Tool/internal/strategy/builtins"
	"github.com/mchia/Backtest-Tool/internal/util"
)

func main() {
	var (
		cfgPath    = flag.String("config", os.Getenv("BACKTEST_CONFIG"), "path to YAML config (optional)")
		symbols    = flag.String("symbols", "", "comma-separated symbols, e.g. AAPL,MSFT")
		strategies = flag.String("strategies", "", "comma-separated strategy names; empty runs all")
		intervalS  = flag.String("interval", "1d", "bar interval (1m 5m 15m 30m 1h 1d 1wk 1mo)")
		startS     = flag.String("start", "", "range start, YYYY-MM-DD")
		endS       = flag.String("end", "", "range end, YYYY-MM-DD (default today)")
		paramsS    = flag.String("params", "", "strategy parameter overrides, e.g. period=7,oversold=25")
		capital    = flag.Float64("capital", 0, "initial capital (0 uses config default)")
		commission = flag.Float64("commission", -1, "per-side commission rate (-1 uses config default)")
		stopLoss   = flag.Float64("stop", -1, "stop-loss fraction from entry (-1 uses config default)")
		sizing     = flag.Float64("sizing", 0, "fraction of cash per entry (0 uses config default)")
		shorts     = flag.Bool("shorts", false, "allow short entries")
		workers    = flag.Int("workers", 0, "parallel sweep workers (0 uses config default)")
		save       = flag.Bool("save", false, "persist results to the run database")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, "text"))

	if *symbols == "" {
		log.Fatal("-symbols is required")
	}
	if *startS == "" {
		log.Fatal("-start is required")
	}

	interval, err := domain.ParseInterval(*intervalS)
	if err != nil {
		log.Fatal(err)
	}
	start, err := time.Parse("2006-01-02", *startS)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end := time.Now().UTC()
	if *endS != "" {
		if end, err = time.Parse("2006-01-02", *endS); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}

	registry := strategy.NewRegistry()
	builtins.RegisterAll(registry)

	stratNames := registry.List()
	if *strategies != "" {
		stratNames = splitList(*strategies)
	}

	cliParams, err := parseParams(*paramsS)
	if err != nil {
		log.Fatal(err)
	}

	simCfg := backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		Commission:     cfg.Backtest.Commission,
		StopLossPct:    cfg.Backtest.StopLossPct,
		SizingFrac:     cfg.Backtest.SizingFrac,
		AllowShorts:    cfg.Backtest.AllowShorts || *shorts,
	}
	if *capital > 0 {
		simCfg.InitialCapital = *capital
	}
	if *commission >= 0 {
		simCfg.Commission = *commission
	}
	if *stopLoss >= 0 {
		simCfg.StopLossPct = *stopLoss
	}
	if *sizing > 0 {
		simCfg.SizingFrac = *sizing
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	barStore := store.NewParquetStore(cfg.Storage.DataDir)
	feedClient := feed.New(cfg.Alpaca, cfg.Feed, barStore)

	var runStore *store.SQLiteStore
	if *save {
		if runStore, err = store.NewSQLiteStore(cfg.Storage.SQLitePath); err != nil {
			log.Fatalf("failed to open run store: %v", err)
		}
		defer runStore.Close()
	}

	// One fetch per symbol; every strategy replays the same series.
	var jobs []backtest.Job
	for _, symbol := range splitList(*symbols) {
		symbol = strings.ToUpper(symbol)
		bars, err := feedClient.Bars(ctx, symbol, interval, start, end)
		if err != nil {
			log.Fatalf("fetching %s: %v", symbol, err)
		}
		for _, name := range stratNames {
			params := strategy.Params{}
			for k, v := range cfg.StrategyParams(name) {
				params[k] = v
			}
			for k, v := range cliParams {
				params[k] = v
			}
			strat, err := registry.Build(name, params)
			if err != nil {
				log.Fatalf("building %s: %v", name, err)
			}
			jobs = append(jobs, backtest.Job{
				Symbol:   symbol,
				Bars:     bars,
				Strategy: strat,
				Config:   simCfg,
			})
		}
	}

	sweepWorkers := cfg.Backtest.SweepWorkers
	if *workers > 0 {
		sweepWorkers = *workers
	}
	results := backtest.Sweep(ctx, jobs, sweepWorkers)

	printResults(results)

	if runStore != nil {
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if _, err := runStore.SaveRun(ctx, interval, r.Result); err != nil {
				log.Printf("saving run %s/%s: %v", r.Job.Symbol, r.Result.Strategy, err)
			}
		}
	}
}

func printResults(results []backtest.JobResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSTRATEGY\tTRADES\tWIN%\tAVG GAIN\tAVG LOSS\tRETURN\tMAX DD\tHOLD")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t%s\tERROR: %v\n", r.Job.Symbol, r.Job.Strategy.Name(), r.Err)
			continue
		}
		rep := r.Result.Report
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\t%.2f%%\t%.2f%%\t%.2f%%\t%.2f%%\t%s\n",
			r.Job.Symbol,
			r.Result.Strategy,
			rep.TotalTrades,
			rep.WinRate*100,
			rep.AvgGainPct*100,
			rep.AvgLossPct*100,
			rep.TotalReturn*100,
			rep.MaxDrawdown*100,
			rep.AvgHolding.Round(time.Minute),
		)
	}
	w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseParams parses "period=7,oversold=25" into strategy parameters.
func parseParams(s string) (strategy.Params, error) {
	params := strategy.Params{}
	if s == "" {
		return params, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid -params entry %q", pair)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -params value %q: %w", pair, err)
		}
		params[strings.ToLower(strings.TrimSpace(k))] = f
	}
	return params, nil
}
