package backtest

import (
	"time"

	"github.com/mchia/Backtest-Tool/internal/domain"
)

// Report holds the summary statistics for one simulation run. It is always
// recomputed from the trade ledger and equity curve — never stored as
// authoritative state — so the same inputs always produce the same report.
type Report struct {
	TotalTrades   int           `json:"totalTrades"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	WinRate       float64       `json:"winRate"`       // fraction of trades with positive P&L
	AvgGainPct    float64       `json:"avgGainPct"`    // mean P&L over winning trades
	AvgLossPct    float64       `json:"avgLossPct"`    // mean P&L over losing trades (negative)
	AvgHolding    time.Duration `json:"avgHolding"`    // mean entry-to-exit duration
	TotalReturn   float64       `json:"totalReturn"`   // final equity / initial capital − 1
	ProfitFactor  float64       `json:"profitFactor"`  // gross gains / gross losses; 0 when no losses
	MaxDrawdown   float64       `json:"maxDrawdown"`   // worst peak-to-trough equity decline, as a fraction
	TimeInProfit  float64       `json:"timeInProfit"`  // fraction of simulated time above break-even
	TimeInLoss    float64       `json:"timeInLoss"`    // fraction of simulated time below break-even
	SkippedShorts int           `json:"skippedShorts"` // short entries ignored because shorts were disabled
}

// BuildReport computes the summary statistics from a frozen ledger and
// equity curve. It is a pure function: an empty ledger yields zeroed
// trade-derived fields with the total return still defined.
func BuildReport(initialCapital float64, trades []domain.Trade, equity []domain.EquityPoint, skipped []domain.SkippedSignal) Report {
	var r Report
	r.TotalTrades = len(trades)
	r.SkippedShorts = len(skipped)

	var gainSum, lossSum float64 // in P&L percent
	var grossGain, grossLoss float64
	var held time.Duration
	for _, t := range trades {
		held += t.HoldingDuration
		dollars := t.PnLPct * t.EntryPrice * t.Size
		switch {
		case t.PnLPct > 0:
			r.Wins++
			gainSum += t.PnLPct
			grossGain += dollars
		case t.PnLPct < 0:
			r.Losses++
			lossSum += t.PnLPct
			grossLoss += -dollars
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.TotalTrades)
		r.AvgHolding = held / time.Duration(r.TotalTrades)
	}
	if r.Wins > 0 {
		r.AvgGainPct = gainSum / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLossPct = lossSum / float64(r.Losses)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossGain / grossLoss
	}

	if len(equity) > 0 && initialCapital > 0 {
		r.TotalReturn = equity[len(equity)-1].Value/initialCapital - 1
	}
	r.MaxDrawdown = maxDrawdown(equity)
	r.TimeInProfit, r.TimeInLoss = timeWeighted(equity, initialCapital)
	return r
}

// maxDrawdown returns the deepest peak-to-trough decline of the equity
// curve as a fraction of the peak.
func maxDrawdown(equity []domain.EquityPoint) float64 {
	var peak, worst float64
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// timeWeighted splits the simulated time span into the fractions spent
// above and below the break-even baseline. Each segment between consecutive
// equity points is classified by the value at its start; points exactly at
// break-even count toward neither side.
func timeWeighted(equity []domain.EquityPoint, baseline float64) (inProfit, inLoss float64) {
	if len(equity) < 2 {
		return 0, 0
	}
	total := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp)
	if total <= 0 {
		return 0, 0
	}
	var profit, loss time.Duration
	for i := 0; i < len(equity)-1; i++ {
		seg := equity[i+1].Timestamp.Sub(equity[i].Timestamp)
		switch {
		case equity[i].Value > baseline:
			profit += seg
		case equity[i].Value < baseline:
			loss += seg
		}
	}
	return float64(profit) / float64(total), float64(loss) / float64(total)
}
