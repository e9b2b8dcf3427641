package backtest

import (
	"fmt"
	"math"
)

// validator checks signals at the stream boundary so the tracker only ever
// sees well-formed input.
type validator struct {
	lastIndex int
	seen      bool
}

func (v *validator) check(sig Signal) error {
	if v.seen && sig.Index <= v.lastIndex {
		return fmt.Errorf("%w: index %d not after %d", ErrMalformedSignal, sig.Index, v.lastIndex)
	}
	if !isFinite(sig.ReferencePrice) {
		return fmt.Errorf("%w: index %d: non-finite reference price %v", ErrMalformedSignal, sig.Index, sig.ReferencePrice)
	}

	switch sig.Action {
	case ActionNone:
	case ActionLong, ActionShort:
		if err := checkBrackets(sig); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: index %d: unknown action %q", ErrMalformedSignal, sig.Index, sig.Action)
	}

	v.lastIndex = sig.Index
	v.seen = true
	return nil
}

// checkBrackets requires positive finite targets on the profitable and
// losing side of the entry respectively.
func checkBrackets(sig Signal) error {
	if !isFinite(sig.TakeProfit) || sig.TakeProfit <= 0 {
		return fmt.Errorf("%w: index %d: missing take-profit", ErrMalformedSignal, sig.Index)
	}
	if !isFinite(sig.StopLoss) || sig.StopLoss <= 0 {
		return fmt.Errorf("%w: index %d: missing stop-loss", ErrMalformedSignal, sig.Index)
	}

	ref := sig.ReferencePrice
	if sig.Action == ActionLong && (sig.TakeProfit <= ref || sig.StopLoss >= ref) {
		return fmt.Errorf("%w: index %d: long brackets tp=%v sl=%v do not enclose %v",
			ErrMalformedSignal, sig.Index, sig.TakeProfit, sig.StopLoss, ref)
	}
	if sig.Action == ActionShort && (sig.TakeProfit >= ref || sig.StopLoss <= ref) {
		return fmt.Errorf("%w: index %d: short brackets tp=%v sl=%v do not enclose %v",
			ErrMalformedSignal, sig.Index, sig.TakeProfit, sig.StopLoss, ref)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
