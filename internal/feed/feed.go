// Package feed retrieves historical OHLCV bars from the Alpaca market-data
// API, caching every fetch through the bar store so repeated backtests over
// the same range never hit the network twice.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/mchia/Backtest-Tool/internal/config"
	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/store"
	"github.com/mchia/Backtest-Tool/internal/util"
)

// barFetcher is the slice of the Alpaca market-data client the feed uses.
type barFetcher interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client fetches bars from Alpaca with rate limiting and retry, writing
// every successful fetch through to the bar cache.
type Client struct {
	remote     barFetcher
	bars       store.BarStore
	limiter    *util.RateLimiter
	maxRetries int
	retryBase  time.Duration
	log        *slog.Logger
}

// New creates a feed Client from the Alpaca credentials and feed settings.
func New(alpacaCfg config.Alpaca, feedCfg config.Feed, bars store.BarStore) *Client {
	opts := marketdata.ClientOpts{
		APIKey:    alpacaCfg.APIKey,
		APISecret: alpacaCfg.APISecret,
	}
	if alpacaCfg.DataURL != "" {
		opts.BaseURL = alpacaCfg.DataURL
	}

	return &Client{
		remote:     marketdata.NewClient(opts),
		bars:       bars,
		limiter:    util.NewRateLimiter(max(feedCfg.RateLimitPerMin, 1)),
		maxRetries: max(feedCfg.MaxRetries, 1),
		retryBase:  time.Duration(max(feedCfg.RetryBaseMS, 1)) * time.Millisecond,
		log:        slog.Default().With("component", "feed"),
	}
}

// Bars returns bars for the symbol and interval within [start, end], oldest
// first. The requested range is first clamped to the interval's maximum
// lookback. Cached bars are served when they already cover the range;
// otherwise the range is fetched remotely and written through to the cache.
func (c *Client) Bars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)
	start, end = interval.ClampRange(start, end)
	if !start.Before(end) {
		return nil, fmt.Errorf("empty range for %s after lookback clamp", interval)
	}

	cached, err := c.bars.ReadBars(ctx, symbol, interval, start, end)
	if err == nil && covers(cached, interval, start, end) {
		c.log.Debug("cache hit", "symbol", symbol, "interval", interval, "bars", len(cached))
		return cached, nil
	}

	fetched, err := c.fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("no bars for %s at %s in requested range", symbol, interval)
	}

	if err := c.bars.WriteBars(ctx, interval, fetched); err != nil {
		// A cache write failure degrades future fetches but not this one.
		c.log.Warn("cache write failed", "symbol", symbol, "err", err)
	}
	return fetched, nil
}

// fetch pulls bars from the remote API under the rate limiter, retrying
// transient failures with exponential backoff.
func (c *Client) fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []marketdata.Bar
	err := util.Retry(ctx, c.maxRetries, c.retryBase, func() error {
		var err error
		raw, err = c.remote.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: timeFrame(interval),
			Start:     start,
			End:       end,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s bars for %s: %w", interval, symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	c.log.Info("fetched bars", "symbol", symbol, "interval", interval, "bars", len(bars))
	return bars, nil
}

// covers reports whether cached bars span the requested range closely enough
// to skip a remote fetch: non-empty, starting within one bar of start, and
// ending within one bar of end.
func covers(bars []domain.Bar, interval domain.Interval, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	d := interval.BarDuration()
	first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
	return !first.After(start.Add(d)) && !last.Before(end.Add(-d))
}

// timeFrame maps an interval to the Alpaca market-data timeframe.
func timeFrame(iv domain.Interval) marketdata.TimeFrame {
	switch iv {
	case domain.Interval1Min:
		return marketdata.OneMin
	case domain.Interval5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min)
	case domain.Interval15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case domain.Interval30Min:
		return marketdata.NewTimeFrame(30, marketdata.Min)
	case domain.IntervalHourly:
		return marketdata.OneHour
	case domain.IntervalWeekly:
		return marketdata.NewTimeFrame(1, marketdata.Week)
	case domain.IntervalMonth:
		return marketdata.NewTimeFrame(1, marketdata.Month)
	default:
		return marketdata.OneDay
	}
}
