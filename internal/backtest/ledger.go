package backtest

import "math"

// Ledger collects the closed trades of one run, partitioned by outcome.
// It is append-only and not safe for concurrent use; every run owns its own.
type Ledger struct {
	wins   []Trade
	losses []Trade
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a trade to the bucket matching its outcome.
func (l *Ledger) Record(t Trade) {
	if t.Outcome == OutcomeWin {
		l.wins = append(l.wins, t)
		return
	}
	l.losses = append(l.losses, t)
}

// Wins returns a copy of the winning trades in close order.
func (l *Ledger) Wins() []Trade {
	out := make([]Trade, len(l.wins))
	copy(out, l.wins)
	return out
}

// Losses returns a copy of the losing trades in close order.
func (l *Ledger) Losses() []Trade {
	out := make([]Trade, len(l.losses))
	copy(out, l.losses)
	return out
}

// Len is the number of closed trades.
func (l *Ledger) Len() int {
	return len(l.wins) + len(l.losses)
}

// Trades returns every closed trade ordered by close index.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, 0, l.Len())
	i, j := 0, 0
	for i < len(l.wins) && j < len(l.losses) {
		if l.wins[i].CloseIndex <= l.losses[j].CloseIndex {
			out = append(out, l.wins[i])
			i++
		} else {
			out = append(out, l.losses[j])
			j++
		}
	}
	out = append(out, l.wins[i:]...)
	return append(out, l.losses[j:]...)
}

// ProfitLoss is the realized result of closing p at its take-profit or
// stop-loss. The gross is always measured to the take-profit; a loss takes
// the same magnitude with the sign flipped. Commission is charged on entry
// and on exit, hence the squared discount.
func ProfitLoss(p Position, outcome Outcome, commission float64) float64 {
	return realizedPnL(grossMove(p.Side, p.EntryPrice, p.TakeProfit), outcome, commission)
}

func grossMove(side Side, entry, exit float64) float64 {
	if side == SideShort {
		return entry - exit
	}
	return exit - entry
}

func realizedPnL(gross float64, outcome Outcome, commission float64) float64 {
	discount := (1 - commission) * (1 - commission)
	if outcome == OutcomeWin {
		return gross * discount
	}
	pnl := -math.Abs(gross) * discount
	if pnl == 0 {
		return 0 // avoid -0 in output
	}
	return pnl
}
