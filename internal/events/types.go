package events

import "backtest-core/internal/backtest"

// Event enumerates run progress topics.
type Event string

const (
	EventPositionOpened Event = "position.opened"
	EventTradeClosed    Event = "trade.closed"
	EventRunCompleted   Event = "run.completed"
)

// PositionOpened is the payload of EventPositionOpened.
type PositionOpened struct {
	RunID    string
	Strategy string
	Position backtest.Position
}

// TradeClosed is the payload of EventTradeClosed.
type TradeClosed struct {
	RunID    string
	Strategy string
	Trade    backtest.Trade
}

// RunCompleted is the payload of EventRunCompleted. Err is set when the run
// produced no summary.
type RunCompleted struct {
	RunID    string
	Strategy string
	Bars     int
	Summary  backtest.Summary
	Err      error
}
