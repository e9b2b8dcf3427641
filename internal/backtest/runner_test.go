package backtest

import (
	"errors"
	"math"
	"testing"
)

type recordingObserver struct {
	opened []Position
	closed []Trade
}

func (r *recordingObserver) PositionOpened(p Position) { r.opened = append(r.opened, p) }
func (r *recordingObserver) TradeClosed(t Trade)       { r.closed = append(r.closed, t) }

func TestBacktestScenarios(t *testing.T) {
	tests := []struct {
		name       string
		commission float64
		stream     SignalSlice
		wantTrades int
		wantNet    float64
		wantRate   float64
		wantPF     float64
	}{
		{
			name: "long take profit",
			stream: SignalSlice{
				entry(0, ActionLong, 100, 110, 95),
				bar(1, 108),
				bar(2, 111),
			},
			wantTrades: 1,
			wantNet:    10,
			wantRate:   1,
			wantPF:     math.Inf(1),
		},
		{
			name: "long stop loss",
			stream: SignalSlice{
				entry(0, ActionLong, 100, 110, 95),
				bar(1, 108),
				bar(2, 94),
			},
			wantTrades: 1,
			wantNet:    -10,
			wantRate:   0,
			wantPF:     0,
		},
		{
			name:       "short win with commission",
			commission: 0.01,
			stream: SignalSlice{
				entry(0, ActionShort, 100, 90, 105),
				bar(1, 89),
			},
			wantTrades: 1,
			wantNet:    9.801,
			wantRate:   1,
			wantPF:     math.Inf(1),
		},
		{
			name: "two sequential trades",
			stream: SignalSlice{
				entry(0, ActionLong, 100, 110, 95),
				bar(1, 111),
				entry(2, ActionShort, 100, 90, 105),
				bar(3, 106),
			},
			wantTrades: 2,
			wantNet:    0,
			wantRate:   0.5,
			wantPF:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Commission: tt.commission}
			res, err := Run(cfg, tt.stream, nil)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if res.Ledger.Len() != tt.wantTrades {
				t.Fatalf("trades=%d, expected %d", res.Ledger.Len(), tt.wantTrades)
			}
			s, err := Summarize(res.Ledger)
			if err != nil {
				t.Fatalf("Summarize returned error: %v", err)
			}
			if math.Abs(s.TotalProfit-tt.wantNet) > 1e-9 {
				t.Fatalf("TotalProfit=%v, expected %v", s.TotalProfit, tt.wantNet)
			}
			if s.WinRate != tt.wantRate {
				t.Fatalf("WinRate=%v, expected %v", s.WinRate, tt.wantRate)
			}
			if s.ProfitFactor != tt.wantPF {
				t.Fatalf("ProfitFactor=%v, expected %v", s.ProfitFactor, tt.wantPF)
			}
		})
	}
}

func TestBacktestEmptyStream(t *testing.T) {
	_, err := Backtest(DefaultConfig(), SignalSlice{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err=%v, expected ErrInsufficientData", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	for _, c := range []float64{1.0, -0.1, 2, math.NaN()} {
		// a malformed first signal proves validation happens before reading
		_, err := Run(Config{Commission: c}, SignalSlice{bar(0, math.NaN())}, nil)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("commission %v: err=%v, expected ErrInvalidConfig", c, err)
		}
	}

	_, err := Run(Config{EndOfData: "hold"}, SignalSlice{}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("policy: err=%v, expected ErrInvalidConfig", err)
	}
}

func TestRunRejectsMalformedSignals(t *testing.T) {
	tests := []struct {
		name   string
		stream SignalSlice
	}{
		{"repeated index", SignalSlice{bar(0, 100), bar(0, 101)}},
		{"decreasing index", SignalSlice{bar(3, 100), bar(2, 101)}},
		{"nan price", SignalSlice{bar(0, math.NaN())}},
		{"infinite price", SignalSlice{bar(0, math.Inf(1))}},
		{"missing take profit", SignalSlice{entry(0, ActionLong, 100, 0, 95)}},
		{"missing stop loss", SignalSlice{entry(0, ActionShort, 100, 90, math.NaN())}},
		{"inverted long brackets", SignalSlice{entry(0, ActionLong, 100, 95, 110)}},
		{"inverted short brackets", SignalSlice{entry(0, ActionShort, 100, 105, 90)}},
		{"unknown action", SignalSlice{{Index: 0, Action: "hedge", ReferencePrice: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(DefaultConfig(), tt.stream, nil)
			if !errors.Is(err, ErrMalformedSignal) {
				t.Fatalf("err=%v, expected ErrMalformedSignal", err)
			}
		})
	}
}

func TestRunGapsInIndexAreAllowed(t *testing.T) {
	res, err := Run(Config{}, SignalSlice{entry(2, ActionLong, 100, 110, 95), bar(7, 112)}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if tr := res.Ledger.Trades(); len(tr) != 1 || tr[0].CloseIndex != 7 {
		t.Fatalf("trades=%+v, expected one closing at 7", tr)
	}
}

func TestRunDanglingPosition(t *testing.T) {
	stream := SignalSlice{
		entry(0, ActionLong, 100, 110, 95),
		bar(1, 111),
		entry(2, ActionLong, 100, 110, 95),
		bar(3, 104),
	}

	res, err := Run(Config{EndOfData: EndOfDataDiscard}, stream, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Ledger.Len() != 1 {
		t.Fatalf("discard: trades=%d, expected 1", res.Ledger.Len())
	}
	if res.Dangling == nil || res.Dangling.OpenIndex != 2 {
		t.Fatalf("Dangling=%+v, expected position opened at 2", res.Dangling)
	}
	if res.Bars != 4 {
		t.Fatalf("Bars=%d, expected 4", res.Bars)
	}

	res, err = Run(Config{EndOfData: EndOfDataClose}, stream, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Ledger.Len() != 2 || res.Dangling != nil {
		t.Fatalf("close: trades=%d dangling=%v, expected 2/nil", res.Ledger.Len(), res.Dangling)
	}
	last := res.Ledger.Trades()[1]
	if last.Reason != ExitEndOfData || last.CloseIndex != 3 || math.Abs(last.ProfitLoss-4) > 1e-9 {
		t.Fatalf("forced trade=%+v, expected end_of_data at 3 with pnl 4", last)
	}

	// A position opened on the final signal has nothing to close against.
	lastBarEntry := SignalSlice{
		entry(0, ActionLong, 100, 110, 95),
		bar(1, 111),
		entry(2, ActionLong, 100, 110, 95),
	}
	for _, policy := range []EndOfDataPolicy{EndOfDataDiscard, EndOfDataClose} {
		res, err = Run(Config{EndOfData: policy}, lastBarEntry, nil)
		if err != nil {
			t.Fatalf("%s: Run returned error: %v", policy, err)
		}
		if res.Ledger.Len() != 1 {
			t.Fatalf("%s: trades=%d, expected 1", policy, res.Ledger.Len())
		}
		if res.Dangling == nil || res.Dangling.OpenIndex != 2 {
			t.Fatalf("%s: Dangling=%+v, expected position opened at 2", policy, res.Dangling)
		}
		summary, err := Summarize(res.Ledger)
		if err != nil {
			t.Fatalf("%s: Summarize returned error: %v", policy, err)
		}
		if summary.WinRate != 1 || summary.Losses != 0 {
			t.Fatalf("%s: win_rate=%v losses=%d, expected 1/0", policy, summary.WinRate, summary.Losses)
		}
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	_, err := Run(Config{}, SignalSlice{
		entry(0, ActionLong, 100, 110, 95),
		entry(1, ActionLong, 101, 111, 96),
		bar(2, 94),
		entry(3, ActionShort, 100, 90, 105),
	}, obs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(obs.opened) != 2 {
		t.Fatalf("opened=%d, expected 2", len(obs.opened))
	}
	if len(obs.closed) != 1 || obs.closed[0].Outcome != OutcomeLoss {
		t.Fatalf("closed=%+v, expected one loss", obs.closed)
	}
}

func TestStreamIsRestartable(t *testing.T) {
	stream := SignalSlice{entry(0, ActionLong, 100, 110, 95), bar(1, 111)}
	a, err := Backtest(Config{}, stream)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Backtest(Config{}, stream)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a != b {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
}
