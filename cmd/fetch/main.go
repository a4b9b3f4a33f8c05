package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mchia/Backtest-Tool/internal/config"
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/feed"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/util"
)

// fetch warms the bar cache so later backtests run fully offline.
func main() {
	var (
		cfgPath   = flag.String("config", os.Getenv("BACKTEST_CONFIG"), "path to YAML config (optional)")
		symbols   = flag.String("symbols", "", "comma-separated symbols, e.g. AAPL,MSFT")
		intervalS = flag.String("interval", "1d", "bar interval (1m 5m 15m 30m 1h 1d 1wk 1mo)")
		startS    = flag.String("start", "", "range start, YYYY-MM-DD")
		endS      = flag.String("end", "", "range end, YYYY-MM-DD (default today)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, "text"))

	if *symbols == "" || *startS == "" {
		log.Fatal("-symbols and -start are required")
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	barStore := store.NewParquetStore(cfg.Storage.DataDir)
	feedClient := feed.New(cfg.Alpaca, cfg.Feed, barStore)

	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		bars, err := feedClient.Bars(ctx, symbol, interval, start, end)
		if err != nil {
			slog.Error("fetch failed", "symbol", symbol, "err", err)
			continue
		}
		slog.Info("cached", "symbol", symbol, "interval", interval, "bars", len(bars))
	}
}
