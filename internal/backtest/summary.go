package backtest

import (
	"fmt"
	"math"
)

// Summary is the aggregate result of one finished run.
type Summary struct {
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinTotal     float64 `json:"win_total"`
	LossTotal    float64 `json:"loss_total"`
	TotalProfit  float64 `json:"total_profit"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	// NoLosses is set when ProfitFactor is +Inf because nothing was lost.
	NoLosses bool `json:"no_losses"`
}

// Summarize reduces a finished ledger. It does not modify the ledger and
// returns identical values for identical input.
func Summarize(l *Ledger) (Summary, error) {
	total := l.Len()
	if total == 0 {
		return Summary{}, fmt.Errorf("summarize: %w", ErrInsufficientData)
	}

	var winTotal, lossTotal float64
	for _, t := range l.wins {
		winTotal += t.ProfitLoss
	}
	for _, t := range l.losses {
		lossTotal += t.ProfitLoss
	}

	s := Summary{
		TotalTrades: total,
		Wins:        len(l.wins),
		Losses:      len(l.losses),
		WinTotal:    winTotal,
		LossTotal:   lossTotal,
		TotalProfit: winTotal + lossTotal,
		WinRate:     float64(len(l.wins)) / float64(total),
	}
	s.ProfitFactor, s.NoLosses = profitFactor(winTotal, lossTotal)
	return s, nil
}

func profitFactor(winTotal, lossTotal float64) (float64, bool) {
	if lossTotal == 0 {
		if winTotal > 0 {
			return math.Inf(1), true
		}
		return 0, false
	}
	return winTotal / math.Abs(lossTotal), false
}
