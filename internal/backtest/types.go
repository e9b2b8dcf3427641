package backtest

import "iter"

// Action is the per-bar entry decision carried by a Signal.
type Action string

const (
	ActionNone  Action = ""
	ActionLong  Action = "long"
	ActionShort Action = "short"
)

// Side of an open position or closed trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Outcome classifies a closed trade.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// ExitReason records which condition closed a trade.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Signal is one bar of strategy output. TakeProfit and StopLoss are only
// meaningful when Action is not ActionNone.
type Signal struct {
	Index          int     `json:"index"`
	Action         Action  `json:"action"`
	ReferencePrice float64 `json:"reference_price"`
	TakeProfit     float64 `json:"take_profit,omitempty"`
	StopLoss       float64 `json:"stop_loss,omitempty"`
}

// Position is the single live position owned by a Tracker.
type Position struct {
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	OpenIndex  int     `json:"open_index"`
}

// Trade is a closed position with its realized, commission-adjusted result.
type Trade struct {
	ID         string     `json:"id"`
	Side       Side       `json:"side"`
	OpenIndex  int        `json:"open_index"`
	CloseIndex int        `json:"close_index"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	TakeProfit float64    `json:"take_profit"`
	StopLoss   float64    `json:"stop_loss"`
	Outcome    Outcome    `json:"outcome"`
	Reason     ExitReason `json:"reason"`
	ProfitLoss float64    `json:"profit_loss"`
}

// Stream is a finite, ordered, restartable sequence of signals. Every call
// to Signals starts again from the first bar.
type Stream interface {
	Signals() iter.Seq[Signal]
}

// SignalSlice is an in-memory Stream.
type SignalSlice []Signal

// Signals implements Stream.
func (s SignalSlice) Signals() iter.Seq[Signal] {
	return func(yield func(Signal) bool) {
		for _, sig := range s {
			if !yield(sig) {
				return
			}
		}
	}
}

// Observer receives run events synchronously. Implementations must not
// block for long; the run waits for them.
type Observer interface {
	PositionOpened(p Position)
	TradeClosed(t Trade)
}
