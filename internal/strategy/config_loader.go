package strategy

import (
	"errors"
	"fmt"
	"os"

	"backtest-core/internal/backtest"

	"gopkg.in/yaml.v3"
)

var ErrNoStrategies = errors.New("strategy config has no entries")

// ConfigFile represents the top-level YAML structure.
type ConfigFile struct {
	Strategies []Params

	// optional backtest block, kept undecoded so it can overlay a base config
	backtest *yaml.Node
}

type rawConfigFile struct {
	Backtest   yaml.Node   `yaml:"backtest"`
	Strategies []yaml.Node `yaml:"strategies"`
}

// LoadConfig reads parameter sets from a YAML file.
func LoadConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes each strategies entry over DefaultParams, so an entry
// only lists the fields it changes.
func ParseConfig(data []byte) (*ConfigFile, error) {
	var raw rawConfigFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse strategy config: %w", err)
	}
	if len(raw.Strategies) == 0 {
		return nil, ErrNoStrategies
	}

	file := &ConfigFile{}
	if raw.Backtest.Kind != 0 {
		file.backtest = &raw.Backtest
	}
	for i := range raw.Strategies {
		p := DefaultParams()
		p.ID = ""
		if err := raw.Strategies[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("strategy_%d", i+1)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("strategies[%d] (%s): %w", i, p.ID, err)
		}
		file.Strategies = append(file.Strategies, p)
	}
	return file, nil
}

// BacktestConfig overlays the file's backtest block, if any, on base. Keys
// the block omits keep their base values.
func (f *ConfigFile) BacktestConfig(base backtest.Config) (backtest.Config, error) {
	if f.backtest == nil {
		return base, nil
	}
	cfg := base
	if err := f.backtest.Decode(&cfg); err != nil {
		return base, fmt.Errorf("backtest block: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
