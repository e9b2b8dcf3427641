package strategy

import (
	"errors"
	"fmt"
)

// TypeRSIBandsCCI is the RSI-band breakout strategy filtered by CCI.
const TypeRSIBandsCCI = "rsibands_cci"

var (
	ErrUnknownStrategy = errors.New("unknown strategy type")
	ErrInvalidParams   = errors.New("invalid strategy parameters")
)

// Params configures one strategy instance. Percentages are fractions of the
// entry close, e.g. 0.01 for 1%.
type Params struct {
	ID   string `yaml:"id" json:"id"`
	Type string `yaml:"type" json:"type"`

	OBLevel   float64 `yaml:"ob_level" json:"ob_level"`
	OSLevel   float64 `yaml:"os_level" json:"os_level"`
	Length    int     `yaml:"length" json:"length"`
	CCIPeriod int     `yaml:"cci_period" json:"cci_period"`

	CCILongBelow  float64 `yaml:"cci_long_below" json:"cci_long_below"`
	CCIShortAbove float64 `yaml:"cci_short_above" json:"cci_short_above"`

	LongTakeProfit  float64 `yaml:"long_take_profit" json:"long_take_profit"`
	LongStopLoss    float64 `yaml:"long_stop_loss" json:"long_stop_loss"`
	ShortTakeProfit float64 `yaml:"short_take_profit" json:"short_take_profit"`
	ShortStopLoss   float64 `yaml:"short_stop_loss" json:"short_stop_loss"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		ID:              "default",
		Type:            TypeRSIBandsCCI,
		OBLevel:         70,
		OSLevel:         30,
		Length:          14,
		CCIPeriod:       30,
		CCILongBelow:    -100,
		CCIShortAbove:   120,
		LongTakeProfit:  0.01,
		LongStopLoss:    0.004,
		ShortTakeProfit: 0.011,
		ShortStopLoss:   0.005,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.Type != TypeRSIBandsCCI:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Type)
	case p.Length < 2:
		return fmt.Errorf("%w: length %d < 2", ErrInvalidParams, p.Length)
	case p.CCIPeriod < 2:
		return fmt.Errorf("%w: cci_period %d < 2", ErrInvalidParams, p.CCIPeriod)
	case p.OSLevel <= 0 || p.OBLevel >= 100 || p.OSLevel >= p.OBLevel:
		return fmt.Errorf("%w: levels os=%v ob=%v must satisfy 0 < os < ob < 100", ErrInvalidParams, p.OSLevel, p.OBLevel)
	}
	for name, v := range map[string]float64{
		"long_take_profit":  p.LongTakeProfit,
		"long_stop_loss":    p.LongStopLoss,
		"short_take_profit": p.ShortTakeProfit,
		"short_stop_loss":   p.ShortStopLoss,
	} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("%w: %s %v outside (0,1)", ErrInvalidParams, name, v)
		}
	}
	return nil
}

// Label names the parameter set in logs.
func (p Params) Label() string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("%s_%d_%g_%g", p.Type, p.Length, p.OBLevel, p.OSLevel)
}
