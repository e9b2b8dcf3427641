package config

import (
	"errors"
	"testing"
	"time"

	"backtest-core/internal/backtest"
)

// chdirTemp keeps a developer's .env out of the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "COMMISSION", "END_OF_DATA", "DATA_SOURCE", "DATA_CSV_PATH", "DB_PATH",
		"SYMBOL", "INTERVAL", "START_DATE", "END_DATE", "STRATEGY_CONFIG", "SWEEP_WORKERS",
		"BINANCE_TESTNET", "BINANCE_RATE_LIMIT", "JWT_SECRET", "LANGUAGE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Commission != backtest.DefaultCommission {
		t.Errorf("Commission=%v, expected %v", cfg.Commission, backtest.DefaultCommission)
	}
	if cfg.EndOfData != backtest.EndOfDataDiscard {
		t.Errorf("EndOfData=%q, expected discard", cfg.EndOfData)
	}
	if cfg.DataSource != SourceCSV || cfg.DBPath != "./data/klines.db" || cfg.Symbol != "BTCUSDT" || cfg.Interval != "1m" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Port != "8080" || cfg.JWTSecret != "" || !cfg.StartDate.IsZero() {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("COMMISSION", "0.001")
	t.Setenv("END_OF_DATA", "close")
	t.Setenv("DATA_SOURCE", "Binance")
	t.Setenv("SYMBOL", "ethusdt")
	t.Setenv("START_DATE", "2024-01-01")
	t.Setenv("END_DATE", "2024-02-01T12:00:00Z")
	t.Setenv("SWEEP_WORKERS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bc := cfg.Backtest()
	if bc.Commission != 0.001 || bc.EndOfData != backtest.EndOfDataClose {
		t.Errorf("Backtest()=%+v", bc)
	}
	if cfg.DataSource != SourceBinance || cfg.Symbol != "ETHUSDT" || cfg.SweepWorkers != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !cfg.StartDate.Equal(want) {
		t.Errorf("StartDate=%v, expected %v", cfg.StartDate, want)
	}
	if want := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC); !cfg.EndDate.Equal(want) {
		t.Errorf("EndDate=%v, expected %v", cfg.EndDate, want)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want error
	}{
		{"commission out of range", "COMMISSION", "1.5", backtest.ErrInvalidConfig},
		{"unknown policy", "END_OF_DATA", "hold", backtest.ErrInvalidConfig},
		{"unknown source", "DATA_SOURCE", "ftp", ErrInvalidEnv},
		{"bad date", "START_DATE", "01/02/2024", ErrInvalidEnv},
		{"decimal comma commission", "COMMISSION", "0,5", ErrInvalidEnv},
		{"non-numeric workers", "SWEEP_WORKERS", "abc", ErrInvalidEnv},
		{"non-numeric rate limit", "BINANCE_RATE_LIMIT", "fast", ErrInvalidEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, expected %v", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvertedRange(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("START_DATE", "2024-02-01")
	t.Setenv("END_DATE", "2024-01-01")
	if _, err := Load(); !errors.Is(err, ErrInvalidEnv) {
		t.Fatalf("err=%v, expected ErrInvalidEnv", err)
	}
}
