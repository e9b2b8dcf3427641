package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"backtest-core/internal/backtest"

	"github.com/joho/godotenv"
)

// Data sources for the price history.
const (
	SourceCSV     = "csv"
	SourceSQLite  = "sqlite"
	SourceBinance = "binance"
)

var ErrInvalidEnv = errors.New("invalid environment setting")

// Config holds environment-driven settings for the backtester.
type Config struct {
	Port string

	// Backtest
	Commission float64
	EndOfData  backtest.EndOfDataPolicy

	// Price history
	DataSource  string // "csv" (default), "sqlite", "binance"
	DataCSVPath string
	DBPath      string
	Symbol      string
	Interval    string
	StartDate   time.Time
	EndDate     time.Time

	// Strategies
	StrategyConfig string
	SweepWorkers   int

	// Binance
	BinanceTestnet   bool
	BinanceRateLimit float64 // requests per second

	// Auth
	JWTSecret string

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	commission, err := getEnvFloat("COMMISSION", backtest.DefaultCommission)
	if err != nil {
		return nil, err
	}
	sweepWorkers, err := getEnvInt("SWEEP_WORKERS", 0)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvFloat("BINANCE_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Commission:       commission,
		DataSource:       strings.ToLower(getEnv("DATA_SOURCE", SourceCSV)),
		DataCSVPath:      getEnv("DATA_CSV_PATH", "./data/klines.csv"),
		DBPath:           getEnv("DB_PATH", "./data/klines.db"),
		Symbol:           strings.ToUpper(getEnv("SYMBOL", "BTCUSDT")),
		Interval:         getEnv("INTERVAL", "1m"),
		StrategyConfig:   getEnv("STRATEGY_CONFIG", "./strategy.yaml"),
		SweepWorkers:     sweepWorkers,
		BinanceTestnet:   getEnv("BINANCE_TESTNET", "false") == "true",
		BinanceRateLimit: rateLimit,
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Language:         getEnv("LANGUAGE", "en"),
	}

	policy, err := backtest.ParseEndOfDataPolicy(getEnv("END_OF_DATA", string(backtest.EndOfDataDiscard)))
	if err != nil {
		return nil, fmt.Errorf("END_OF_DATA: %w", err)
	}
	cfg.EndOfData = policy

	switch cfg.DataSource {
	case SourceCSV, SourceSQLite, SourceBinance:
	default:
		return nil, fmt.Errorf("%w: DATA_SOURCE %q", ErrInvalidEnv, cfg.DataSource)
	}

	if cfg.StartDate, err = getEnvDate("START_DATE"); err != nil {
		return nil, err
	}
	if cfg.EndDate, err = getEnvDate("END_DATE"); err != nil {
		return nil, err
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && !cfg.EndDate.After(cfg.StartDate) {
		return nil, fmt.Errorf("%w: END_DATE must be after START_DATE", ErrInvalidEnv)
	}

	if err := cfg.Backtest().Validate(); err != nil {
		return nil, fmt.Errorf("COMMISSION: %w", err)
	}
	return cfg, nil
}

// Backtest returns the core run configuration.
func (c *Config) Backtest() backtest.Config {
	return backtest.Config{Commission: c.Commission, EndOfData: c.EndOfData}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat returns def when key is unset and an error when it is set but
// not a number.
func getEnvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%w: %s %q is not a number", ErrInvalidEnv, key, v)
	}
	return f, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidEnv, key, v)
	}
	return i, nil
}

// getEnvDate accepts a plain date (UTC midnight) or RFC3339. Unset is zero.
func getEnvDate(key string) (time.Time, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD or RFC3339", ErrInvalidEnv, key, v)
}
