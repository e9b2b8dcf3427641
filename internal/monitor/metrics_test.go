package monitor

import (
	"errors"
	"testing"
	"time"

	"backtest-core/internal/backtest"
	"backtest-core/internal/events"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(4)
	if got := h.Stats(); got.Count != 0 {
		t.Fatalf("empty stats=%+v", got)
	}
	for _, v := range []float64{5, 1, 3, 2, 4} {
		h.Record(v)
	}
	// oldest sample (5) fell out of the window
	got := h.Stats()
	if got.Count != 4 || got.Min != 1 || got.Max != 4 || got.Avg != 2.5 {
		t.Fatalf("stats=%+v, expected count=4 min=1 max=4 avg=2.5", got)
	}
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(10*time.Millisecond, 200)
	m.ObserveRequest(20*time.Millisecond, 422)
	m.ObserveRun(events.RunCompleted{})
	m.ObserveRun(events.RunCompleted{Err: backtest.ErrInsufficientData})
	m.ObserveRun(events.RunCompleted{Err: errors.New("boom")})

	s := m.Snapshot()
	if s.APIRequests != 2 || s.APIErrors != 1 || s.APILatency.Count != 2 {
		t.Fatalf("api counters=%+v", s)
	}
	if s.RunsCompleted != 1 || s.RunsNoTrades != 1 || s.RunsFailed != 1 {
		t.Fatalf("run counters=%+v", s)
	}
}

func TestMetricsWatchBus(t *testing.T) {
	bus := events.NewBus()
	m := NewMetrics()
	stop := m.Watch(bus)

	obs := &events.BusObserver{Bus: bus, RunID: "r1"}
	stream := backtest.SignalSlice{
		{Index: 0, Action: backtest.ActionShort, ReferencePrice: 100, TakeProfit: 90, StopLoss: 105},
		{Index: 1, ReferencePrice: 106},
	}
	res, err := backtest.Run(backtest.DefaultConfig(), stream, obs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, err := backtest.Summarize(res.Ledger)
	obs.Completed(res.Bars, s, err)

	stop()
	snap := m.Snapshot()
	if snap.RunsCompleted != 1 || snap.TradesClosed != 1 {
		t.Fatalf("snapshot=%+v, expected one run and one trade", snap)
	}
}
