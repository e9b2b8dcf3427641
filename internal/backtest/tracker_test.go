package backtest

import (
	"math"
	"testing"
)

func entry(idx int, a Action, ref, tp, sl float64) Signal {
	return Signal{Index: idx, Action: a, ReferencePrice: ref, TakeProfit: tp, StopLoss: sl}
}

func bar(idx int, ref float64) Signal {
	return Signal{Index: idx, ReferencePrice: ref}
}

func TestTrackerCloseConditions(t *testing.T) {
	tests := []struct {
		name        string
		open        Signal
		next        float64
		wantClosed  bool
		wantOutcome Outcome
		wantReason  ExitReason
	}{
		{"long take profit", entry(0, ActionLong, 100, 110, 95), 110, true, OutcomeWin, ExitTakeProfit},
		{"long above take profit", entry(0, ActionLong, 100, 110, 95), 125, true, OutcomeWin, ExitTakeProfit},
		{"long stop loss", entry(0, ActionLong, 100, 110, 95), 95, true, OutcomeLoss, ExitStopLoss},
		{"long inside range", entry(0, ActionLong, 100, 110, 95), 108, false, "", ""},
		{"short take profit", entry(0, ActionShort, 100, 90, 105), 89, true, OutcomeWin, ExitTakeProfit},
		{"short stop loss", entry(0, ActionShort, 100, 90, 105), 105, true, OutcomeLoss, ExitStopLoss},
		{"short inside range", entry(0, ActionShort, 100, 90, 105), 101, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(0)
			if _, closed := tr.Process(tt.open); closed {
				t.Fatalf("entry bar closed a trade")
			}
			trade, closed := tr.Process(bar(1, tt.next))
			if closed != tt.wantClosed {
				t.Fatalf("closed=%v, expected %v", closed, tt.wantClosed)
			}
			if !closed {
				if _, open := tr.Open(); !open {
					t.Fatalf("position should still be open")
				}
				return
			}
			if trade.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome=%v, expected %v", trade.Outcome, tt.wantOutcome)
			}
			if trade.Reason != tt.wantReason {
				t.Fatalf("Reason=%v, expected %v", trade.Reason, tt.wantReason)
			}
			if trade.OpenIndex != 0 || trade.CloseIndex != 1 {
				t.Fatalf("indices=%d..%d, expected 0..1", trade.OpenIndex, trade.CloseIndex)
			}
			if _, open := tr.Open(); open {
				t.Fatalf("tracker should be idle after close")
			}
		})
	}
}

func TestTrackerWinFirstOnDoubleTrigger(t *testing.T) {
	// degenerate brackets where a single price satisfies both conditions
	tr := NewTracker(0)
	tr.pos = &Position{Side: SideLong, EntryPrice: 100, TakeProfit: 100, StopLoss: 100}
	trade, closed := tr.Process(bar(1, 100))
	if !closed || trade.Outcome != OutcomeWin {
		t.Fatalf("got closed=%v outcome=%v, expected win", closed, trade.Outcome)
	}

	tr.pos = &Position{Side: SideShort, EntryPrice: 100, TakeProfit: 100, StopLoss: 100}
	trade, closed = tr.Process(bar(2, 100))
	if !closed || trade.Outcome != OutcomeWin {
		t.Fatalf("short: got closed=%v outcome=%v, expected win", closed, trade.Outcome)
	}
}

func TestTrackerDropsEntriesWhileOpen(t *testing.T) {
	tr := NewTracker(0)
	tr.Process(entry(0, ActionLong, 100, 110, 95))
	tr.Process(entry(1, ActionShort, 101, 90, 106))

	p, ok := tr.Open()
	if !ok {
		t.Fatalf("expected open position")
	}
	if p.Side != SideLong || p.OpenIndex != 0 {
		t.Fatalf("position replaced: %+v", p)
	}

	// the dropped short is not queued: after the long closes the tracker is idle
	tr.Process(bar(2, 111))
	if _, ok := tr.Open(); ok {
		t.Fatalf("dropped entry was queued")
	}
}

func TestTrackerForceClose(t *testing.T) {
	tr := NewTracker(0)
	if _, ok := tr.ForceClose(0, 100); ok {
		t.Fatalf("idle tracker produced a trade")
	}

	tr.Process(entry(0, ActionShort, 100, 90, 105))
	trade, ok := tr.ForceClose(3, 97)
	if !ok {
		t.Fatalf("expected forced trade")
	}
	if trade.Outcome != OutcomeWin || trade.Reason != ExitEndOfData {
		t.Fatalf("got %v/%v, expected win/end_of_data", trade.Outcome, trade.Reason)
	}
	if math.Abs(trade.ProfitLoss-3) > 1e-9 {
		t.Fatalf("ProfitLoss=%v, expected 3", trade.ProfitLoss)
	}

	tr.Process(entry(4, ActionLong, 100, 110, 95))
	trade, _ = tr.ForceClose(5, 100)
	if trade.Outcome != OutcomeLoss || trade.ProfitLoss != 0 {
		t.Fatalf("flat exit: got %v %v, expected loss 0", trade.Outcome, trade.ProfitLoss)
	}
}
