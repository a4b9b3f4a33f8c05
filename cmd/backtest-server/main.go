package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchia/Backtest-Tool/internal/backtest"
	"github.com/mchia/Backtest-Tool/internal/config"
	"github.com/mchia/Backtest-Tool/internal/feed"
	"github.com/mchia/Backtest-Tool/internal/httpapi"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/strategy"
	"github.com/mchia/Backtest-Tool/internal/strategy/builtins"
	"github.com/mchia/Backtest-Tool/internal/util"
)

func main() {
	cfgPath := os.Getenv("BACKTEST_CONFIG")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	registry := strategy.NewRegistry()
	builtins.RegisterAll(registry)

	barStore := store.NewParquetStore(cfg.Storage.DataDir)
	runStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer runStore.Close()

	feedClient := feed.New(cfg.Alpaca, cfg.Feed, barStore)

	defaults := backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		Commission:     cfg.Backtest.Commission,
		StopLossPct:    cfg.Backtest.StopLossPct,
		SizingFrac:     cfg.Backtest.SizingFrac,
		AllowShorts:    cfg.Backtest.AllowShorts,
	}
	api := httpapi.NewServer(registry, feedClient, runStore, defaults)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("backtest-server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}
