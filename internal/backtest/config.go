package backtest

import (
	"fmt"
	"math"
)

// EndOfDataPolicy decides what happens to a position still open when the
// stream is exhausted.
type EndOfDataPolicy string

const (
	// EndOfDataDiscard drops the dangling position; it never reaches the ledger.
	EndOfDataDiscard EndOfDataPolicy = "discard"
	// EndOfDataClose force-closes it at the last reference price.
	EndOfDataClose EndOfDataPolicy = "close"
)

// DefaultCommission is charged once on entry and once on exit.
const DefaultCommission = 0.005

// Config holds the tunables of a single run.
type Config struct {
	Commission float64         `json:"commission" yaml:"commission"`
	EndOfData  EndOfDataPolicy `json:"end_of_data" yaml:"end_of_data"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		Commission: DefaultCommission,
		EndOfData:  EndOfDataDiscard,
	}
}

// Validate rejects commissions outside [0,1) and unknown policies.
// An empty policy is treated as EndOfDataDiscard.
func (c Config) Validate() error {
	if math.IsNaN(c.Commission) || c.Commission < 0 || c.Commission >= 1 {
		return fmt.Errorf("%w: commission %v outside [0,1)", ErrInvalidConfig, c.Commission)
	}
	switch c.EndOfData {
	case "", EndOfDataDiscard, EndOfDataClose:
		return nil
	default:
		return fmt.Errorf("%w: unknown end-of-data policy %q", ErrInvalidConfig, c.EndOfData)
	}
}

// ParseEndOfDataPolicy maps a config string onto a policy.
func ParseEndOfDataPolicy(s string) (EndOfDataPolicy, error) {
	switch EndOfDataPolicy(s) {
	case "", EndOfDataDiscard:
		return EndOfDataDiscard, nil
	case EndOfDataClose:
		return EndOfDataClose, nil
	default:
		return "", fmt.Errorf("%w: unknown end-of-data policy %q", ErrInvalidConfig, s)
	}
}
