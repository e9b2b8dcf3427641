package strategy

import (
	"fmt"
	"iter"
	"math"

	"backtest-core/internal/backtest"
	"backtest-core/internal/data"
	"backtest-core/internal/indicators"
)

// RSIBandsStrategy turns a price history into one signal per bar.
//
// LONG when the close crosses down through the oversold band while CCI is
// below CCILongBelow; SHORT when it crosses up through the overbought band
// while CCI is above CCIShortAbove.
type RSIBandsStrategy struct {
	params Params
	frame  indicators.Frame
}

// NewRSIBandsStrategy computes the indicator frame for klines up front so
// every Signals call replays the same sequence.
func NewRSIBandsStrategy(p Params, klines []data.Kline) (*RSIBandsStrategy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	high, low, closes := data.HighLowClose(klines)
	eng := indicators.NewEngine(p.Length, p.OBLevel, p.OSLevel, p.CCIPeriod)
	return &RSIBandsStrategy{
		params: p,
		frame:  eng.Compute(high, low, closes),
	}, nil
}

// New builds the stream for p.Type.
func New(p Params, klines []data.Kline) (backtest.Stream, error) {
	switch p.Type {
	case TypeRSIBandsCCI:
		return NewRSIBandsStrategy(p, klines)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Type)
	}
}

func (s *RSIBandsStrategy) Name() string { return s.params.Label() }

// Signals implements backtest.Stream.
func (s *RSIBandsStrategy) Signals() iter.Seq[backtest.Signal] {
	return func(yield func(backtest.Signal) bool) {
		for i := 0; i < s.frame.Len(); i++ {
			if !yield(signalAt(s.params, s.frame, i)) {
				return
			}
		}
	}
}

// Entries counts bars that carry an entry action.
func (s *RSIBandsStrategy) Entries() int {
	n := 0
	for sig := range s.Signals() {
		if sig.Action != backtest.ActionNone {
			n++
		}
	}
	return n
}

func signalAt(p Params, f indicators.Frame, i int) backtest.Signal {
	price := f.Close[i]
	sig := backtest.Signal{Index: i, ReferencePrice: price}
	if i == 0 {
		return sig
	}

	prevPrice := f.Close[i-1]
	cci := f.CCI[i]
	if anyNaN(prevPrice, price, cci) {
		return sig
	}

	if !anyNaN(f.Lower[i-1], f.Lower[i]) &&
		prevPrice > f.Lower[i-1] && price <= f.Lower[i] && cci < p.CCILongBelow {
		sig.Action = backtest.ActionLong
		sig.TakeProfit = price * (1 + p.LongTakeProfit)
		sig.StopLoss = price * (1 - p.LongStopLoss)
		return sig
	}
	if !anyNaN(f.Upper[i-1], f.Upper[i]) &&
		prevPrice < f.Upper[i-1] && price >= f.Upper[i] && cci > p.CCIShortAbove {
		sig.Action = backtest.ActionShort
		sig.TakeProfit = price * (1 - p.ShortTakeProfit)
		sig.StopLoss = price * (1 + p.ShortStopLoss)
	}
	return sig
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
