package backtest

import "github.com/google/uuid"

// Tracker is the single-slot position state machine. It is either idle or
// holds exactly one open Position.
type Tracker struct {
	commission float64
	pos        *Position
}

// NewTracker creates an idle tracker charging the given commission rate.
func NewTracker(commission float64) *Tracker {
	return &Tracker{commission: commission}
}

// Open reports the live position, if any.
func (t *Tracker) Open() (Position, bool) {
	if t.pos == nil {
		return Position{}, false
	}
	return *t.pos, true
}

// Process applies one signal. It returns the trade closed by this bar, if
// any. Entry signals that arrive while a position is open are dropped.
func (t *Tracker) Process(sig Signal) (Trade, bool) {
	if t.pos == nil {
		if sig.Action == ActionNone {
			return Trade{}, false
		}
		t.pos = &Position{
			Side:       sideOf(sig.Action),
			EntryPrice: sig.ReferencePrice,
			TakeProfit: sig.TakeProfit,
			StopLoss:   sig.StopLoss,
			OpenIndex:  sig.Index,
		}
		return Trade{}, false
	}

	price := sig.ReferencePrice
	// take-profit is checked first so a bar crossing both levels is a win
	switch {
	case t.isTakeProfitTriggered(price):
		return t.close(sig.Index, t.pos.TakeProfit, OutcomeWin, ExitTakeProfit), true
	case t.isStopLossTriggered(price):
		return t.close(sig.Index, t.pos.StopLoss, OutcomeLoss, ExitStopLoss), true
	}
	return Trade{}, false
}

// ForceClose closes the live position at price, classifying it by the
// sign of the price move. It is used by the end-of-data close policy.
func (t *Tracker) ForceClose(index int, price float64) (Trade, bool) {
	if t.pos == nil {
		return Trade{}, false
	}
	p := *t.pos
	t.pos = nil

	gross := grossMove(p.Side, p.EntryPrice, price)
	outcome := OutcomeLoss
	if gross > 0 {
		outcome = OutcomeWin
	}
	return newTrade(p, index, price, outcome, ExitEndOfData, realizedPnL(gross, outcome, t.commission)), true
}

// Discard drops the live position without producing a trade.
func (t *Tracker) Discard() (Position, bool) {
	if t.pos == nil {
		return Position{}, false
	}
	p := *t.pos
	t.pos = nil
	return p, true
}

func (t *Tracker) isTakeProfitTriggered(price float64) bool {
	if t.pos.Side == SideLong {
		return price >= t.pos.TakeProfit
	}
	return price <= t.pos.TakeProfit
}

func (t *Tracker) isStopLossTriggered(price float64) bool {
	if t.pos.Side == SideLong {
		return price <= t.pos.StopLoss
	}
	return price >= t.pos.StopLoss
}

func (t *Tracker) close(index int, exit float64, outcome Outcome, reason ExitReason) Trade {
	p := *t.pos
	t.pos = nil
	pnl := ProfitLoss(p, outcome, t.commission)
	return newTrade(p, index, exit, outcome, reason, pnl)
}

func newTrade(p Position, closeIndex int, exit float64, outcome Outcome, reason ExitReason, pnl float64) Trade {
	return Trade{
		ID:         uuid.NewString(),
		Side:       p.Side,
		OpenIndex:  p.OpenIndex,
		CloseIndex: closeIndex,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		TakeProfit: p.TakeProfit,
		StopLoss:   p.StopLoss,
		Outcome:    outcome,
		Reason:     reason,
		ProfitLoss: pnl,
	}
}

func sideOf(a Action) Side {
	if a == ActionShort {
		return SideShort
	}
	return SideLong
}
