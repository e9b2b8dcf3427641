// Package sweep evaluates many strategy parameter sets over the same price
// history, one independent backtest per set.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"backtest-core/internal/backtest"
	"backtest-core/internal/data"
	"backtest-core/internal/events"
	"backtest-core/internal/strategy"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one parameter set. Err holds
// backtest.ErrInsufficientData when the run closed no trades.
type Outcome struct {
	Params  strategy.Params  `json:"params"`
	RunID   string           `json:"run_id"`
	Bars    int              `json:"bars"`
	Summary backtest.Summary `json:"summary"`
	Err     error            `json:"-"`
}

// Sweeper runs parameter sets concurrently. Bus is optional; when set every
// run publishes its progress on it.
type Sweeper struct {
	Config  backtest.Config
	Workers int
	Bus     *events.Bus
}

// Run is a convenience wrapper around Sweeper.Run without a bus.
func Run(ctx context.Context, cfg backtest.Config, klines []data.Kline, params []strategy.Params, workers int) ([]Outcome, error) {
	s := &Sweeper{Config: cfg, Workers: workers}
	return s.Run(ctx, klines, params)
}

// Run returns one Outcome per parameter set, in input order. Any error other
// than insufficient data cancels the remaining runs.
func (s *Sweeper) Run(ctx context.Context, klines []data.Kline, params []strategy.Params) ([]Outcome, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]Outcome, len(params))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range params {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := s.runOne(p, klines)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", p.Label(), err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Sweeper) runOne(p strategy.Params, klines []data.Kline) (Outcome, error) {
	stream, err := strategy.New(p, klines)
	if err != nil {
		return Outcome{}, err
	}

	var (
		runID  = uuid.NewString()
		obs    backtest.Observer
		busObs *events.BusObserver
	)
	if s.Bus != nil {
		busObs = &events.BusObserver{Bus: s.Bus, RunID: runID, Strategy: p.Label()}
		obs = busObs
	}

	res, err := backtest.RunWithID(runID, s.Config, stream, obs)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Params: p, RunID: res.ID, Bars: res.Bars}
	out.Summary, out.Err = backtest.Summarize(res.Ledger)
	if busObs != nil {
		busObs.Completed(res.Bars, out.Summary, out.Err)
	}
	if out.Err != nil && !errors.Is(out.Err, backtest.ErrInsufficientData) {
		return Outcome{}, out.Err
	}
	return out, nil
}

// Best returns the successful outcome with the highest total profit.
func Best(outcomes []Outcome) (Outcome, bool) {
	var (
		best  Outcome
		found bool
	)
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if !found || o.Summary.TotalProfit > best.Summary.TotalProfit {
			best, found = o, true
		}
	}
	return best, found
}
