package backtest

import (
	"fmt"

	"github.com/google/uuid"
)

// Result is everything one run produced.
type Result struct {
	ID     string
	Bars   int
	Ledger *Ledger
	// Dangling is the position left open at stream end under the discard
	// policy, or one opened on the final signal under either policy. It is
	// reported for inspection only and is never in the ledger.
	Dangling *Position
}

// Run drives one full backtest over stream. The config is validated before
// the first signal is read; a malformed signal aborts the run. obs may be nil.
func Run(cfg Config, stream Stream, obs Observer) (*Result, error) {
	return RunWithID(uuid.NewString(), cfg, stream, obs)
}

// RunWithID is Run with a caller-chosen run ID, for observers that need to
// tag events before the run returns.
func RunWithID(id string, cfg Config, stream Stream, obs Observer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		v       validator
		tracker = NewTracker(cfg.Commission)
		ledger  = NewLedger()
		last    Signal
		bars    int
	)

	for sig := range stream.Signals() {
		if err := v.check(sig); err != nil {
			return nil, err
		}
		bars++
		last = sig

		_, wasOpen := tracker.Open()
		trade, closed := tracker.Process(sig)
		if closed {
			ledger.Record(trade)
			if obs != nil {
				obs.TradeClosed(trade)
			}
			continue
		}
		if !wasOpen && obs != nil {
			if p, ok := tracker.Open(); ok {
				obs.PositionOpened(p)
			}
		}
	}

	res := &Result{
		ID:     id,
		Bars:   bars,
		Ledger: ledger,
	}

	// A position opened on the final signal has no later bar to close on, so
	// it is reported as dangling under either policy.
	if p, ok := tracker.Open(); ok && p.OpenIndex == last.Index {
		tracker.Discard()
		res.Dangling = &p
		return res, nil
	}

	switch cfg.EndOfData {
	case EndOfDataClose:
		if trade, ok := tracker.ForceClose(last.Index, last.ReferencePrice); ok {
			ledger.Record(trade)
			if obs != nil {
				obs.TradeClosed(trade)
			}
		}
	default:
		if p, ok := tracker.Discard(); ok {
			res.Dangling = &p
		}
	}
	return res, nil
}

// Backtest runs stream and summarizes the ledger.
func Backtest(cfg Config, stream Stream) (Summary, error) {
	res, err := Run(cfg, stream, nil)
	if err != nil {
		return Summary{}, err
	}
	s, err := Summarize(res.Ledger)
	if err != nil {
		return Summary{}, fmt.Errorf("run %s: %w", res.ID, err)
	}
	return s, nil
}
