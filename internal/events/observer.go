package events

import "backtest-core/internal/backtest"

// BusObserver publishes backtest callbacks onto a Bus.
type BusObserver struct {
	Bus      *Bus
	RunID    string
	Strategy string
}

var _ backtest.Observer = (*BusObserver)(nil)

func (o *BusObserver) PositionOpened(p backtest.Position) {
	o.Bus.Publish(EventPositionOpened, PositionOpened{RunID: o.RunID, Strategy: o.Strategy, Position: p})
}

func (o *BusObserver) TradeClosed(t backtest.Trade) {
	o.Bus.Publish(EventTradeClosed, TradeClosed{RunID: o.RunID, Strategy: o.Strategy, Trade: t})
}

// Completed publishes the end of a run.
func (o *BusObserver) Completed(bars int, s backtest.Summary, err error) {
	o.Bus.Publish(EventRunCompleted, RunCompleted{
		RunID:    o.RunID,
		Strategy: o.Strategy,
		Bars:     bars,
		Summary:  s,
		Err:      err,
	})
}
