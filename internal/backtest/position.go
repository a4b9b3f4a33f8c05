package backtest

import (
	"time"

	"github.com/mchia/Backtest-Tool/internal/domain"
)

// position is the single open exposure of a simulation run. It is owned by
// the simulator for the duration of the run: created Flat, stepped once per
// bar, and converted into a domain.Trade each time it closes.
type position struct {
	side       domain.Side
	entryPrice float64
	entryTime  time.Time
	size       float64
	stopPrice  float64 // 0 when no stop is configured
}

// step advances the state machine by one bar. The transition priority is
// fixed and defines the tie-break when a stop breach and an exit signal land
// on the same bar:
//
//  1. stop-loss breach, checked intrabar against the bar's low (long) or
//     high (short) and filled at the stop price — stops trigger on touch,
//     not on close;
//  2. an Exit signal, or an opposing entry signal while positioned, filled
//     at the bar's close;
//  3. an entry signal while flat, filled at the bar's close;
//  4. otherwise no transition.
//
// Entries are suppressed when lastBar is set so that a trade can never open
// and force-close on the same timestamp. A short entry while short selling
// is disabled is treated as Hold and reported through the returned
// SkippedSignal.
func (p *position) step(bar domain.Bar, sig domain.SignalType, stopLossPct, sizingFrac, cash float64, allowShorts, lastBar bool) (*domain.Trade, *domain.SkippedSignal) {
	// 1. Intrabar stop breach.
	if p.stopPrice > 0 {
		if p.side == domain.Long && bar.Low <= p.stopPrice {
			return p.close(bar.Timestamp, p.stopPrice, domain.ExitStopLoss), nil
		}
		if p.side == domain.Short && bar.High >= p.stopPrice {
			return p.close(bar.Timestamp, p.stopPrice, domain.ExitStopLoss), nil
		}
	}

	// 2. Signal exit. A reversal entry against the open side closes the
	// position regardless of whether the short flag would permit taking the
	// other side: the reversal still expresses exit intent.
	if p.side != domain.Flat {
		opposing := (p.side == domain.Long && sig == domain.EnterShort) ||
			(p.side == domain.Short && sig == domain.EnterLong)
		if sig == domain.Exit || opposing {
			return p.close(bar.Timestamp, bar.Close, domain.ExitSignal), nil
		}
		return nil, nil
	}

	// 3. Entry while flat.
	switch sig {
	case domain.EnterLong:
		if !lastBar {
			p.open(domain.Long, bar, stopLossPct, sizingFrac, cash)
		}
	case domain.EnterShort:
		if !allowShorts {
			return nil, &domain.SkippedSignal{
				Timestamp: bar.Timestamp,
				Signal:    sig,
				Reason:    "short selling disabled",
			}
		}
		if !lastBar {
			p.open(domain.Short, bar, stopLossPct, sizingFrac, cash)
		}
	}
	return nil, nil
}

// open enters a new position at the bar's close, sizing it as a fraction of
// the current cash balance and arming the stop from the configured stop-loss
// percentage relative to entry.
func (p *position) open(side domain.Side, bar domain.Bar, stopLossPct, sizingFrac, cash float64) {
	p.side = side
	p.entryPrice = bar.Close
	p.entryTime = bar.Timestamp
	p.size = cash * sizingFrac / bar.Close
	p.stopPrice = 0
	if stopLossPct > 0 {
		if side == domain.Long {
			p.stopPrice = bar.Close * (1 - stopLossPct)
		} else {
			p.stopPrice = bar.Close * (1 + stopLossPct)
		}
	}
}

// close converts the open position into an immutable Trade and resets the
// machine to Flat for the next entry.
func (p *position) close(ts time.Time, price float64, reason domain.ExitReason) *domain.Trade {
	pnl := (price - p.entryPrice) / p.entryPrice
	if p.side == domain.Short {
		pnl = (p.entryPrice - price) / p.entryPrice
	}
	t := &domain.Trade{
		Side:            p.side,
		EntryTime:       p.entryTime,
		ExitTime:        ts,
		EntryPrice:      p.entryPrice,
		ExitPrice:       price,
		Size:            p.size,
		ExitReason:      reason,
		PnLPct:          pnl,
		HoldingDuration: ts.Sub(p.entryTime),
	}
	*p = position{}
	return t
}

// unrealized returns the mark-to-market P&L of the open position at the
// given price, zero when flat.
func (p *position) unrealized(price float64) float64 {
	switch p.side {
	case domain.Long:
		return (price - p.entryPrice) * p.size
	case domain.Short:
		return (p.entryPrice - price) * p.size
	}
	return 0
}
