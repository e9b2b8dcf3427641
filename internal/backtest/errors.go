package backtest

import "errors"

var (
	// ErrMalformedSignal aborts a run at the offending bar.
	ErrMalformedSignal = errors.New("malformed signal")
	// ErrInvalidConfig is returned before any signal is processed.
	ErrInvalidConfig = errors.New("invalid backtest config")
	// ErrInsufficientData means the ledger holds no closed trades to summarize.
	ErrInsufficientData = errors.New("insufficient data: no closed trades")
)
