// Command healthcheck reports whether the backtester's dependencies are
// usable: configuration, the kline store, Binance market data and a running
// API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"backtest-core/pkg/config"
	"backtest-core/pkg/db"
	market "backtest-core/pkg/market/binance"
)

type HealthStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthReport struct {
	Overall  string         `json:"overall"`
	Services []HealthStatus `json:"services"`
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := HealthReport{Overall: "HEALTHY"}

	cfg, err := config.Load()
	report.Services = append(report.Services, checkConfig(cfg, err))
	if err == nil {
		report.Services = append(report.Services,
			checkKlineStore(ctx, cfg),
			checkBinance(ctx, cfg),
			checkAPIServer(ctx, cfg),
		)
	}

	for _, svc := range report.Services {
		if svc.Status == "UNHEALTHY" {
			report.Overall = "UNHEALTHY"
			break
		} else if svc.Status == "DEGRADED" {
			report.Overall = "DEGRADED"
		}
	}

	fmt.Println("Results:")
	fmt.Println("--------")
	for _, svc := range report.Services {
		statusIcon := "✓"
		if svc.Status == "UNHEALTHY" {
			statusIcon = "✗"
		} else if svc.Status == "DEGRADED" {
			statusIcon = "⚠"
		}
		fmt.Printf("%s %-20s %s %s\n", statusIcon, svc.Service, svc.Status, svc.Message)
	}
	fmt.Println()
	fmt.Printf("Overall Status: %s\n", report.Overall)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		jsonData, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(jsonData))
	}

	if report.Overall == "UNHEALTHY" {
		os.Exit(1)
	}
}

func newStatus(service string) HealthStatus {
	return HealthStatus{Service: service, Status: "HEALTHY", Timestamp: time.Now()}
}

func checkConfig(cfg *config.Config, err error) HealthStatus {
	status := newStatus("Configuration")
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Failed to load: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("source=%s commission=%.4f end_of_data=%s", cfg.DataSource, cfg.Commission, cfg.EndOfData)
	return status
}

func checkKlineStore(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Kline store")

	database, err := db.New(cfg.DBPath)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Open failed: %v", err)
		return status
	}
	defer database.Close()
	mode, err := database.Ping(ctx, 5*time.Second)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Ping failed: %v", err)
		return status
	}
	if err := db.ApplyMigrations(database); err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Migration failed: %v", err)
		return status
	}

	n, err := database.Klines().CountKlines(ctx, cfg.Symbol, cfg.Interval)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Query failed: %v", err)
		return status
	}
	if n == 0 && cfg.DataSource == config.SourceSQLite {
		status.Status = "DEGRADED"
		status.Message = fmt.Sprintf("No %s %s klines stored; run fetch first", cfg.Symbol, cfg.Interval)
		return status
	}
	status.Message = fmt.Sprintf("%d %s %s klines (journal=%s)", n, cfg.Symbol, cfg.Interval, mode)
	return status
}

func checkBinance(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Binance market data")

	network := "MAINNET"
	if cfg.BinanceTestnet {
		network = "TESTNET"
	}
	if err := market.NewMarketDataClient(cfg.BinanceTestnet).Ping(ctx); err != nil {
		// only fatal when runs depend on it
		status.Status = "DEGRADED"
		if cfg.DataSource == config.SourceBinance {
			status.Status = "UNHEALTHY"
		}
		status.Message = fmt.Sprintf("%s not reachable: %v", network, err)
		return status
	}
	status.Message = "Connected to " + network
	return status
}

func checkAPIServer(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("API server")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%s/health", cfg.Port), nil)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = err.Error()
		return status
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		status.Status = "DEGRADED"
		status.Message = fmt.Sprintf("Not running: %v", err)
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Status = "DEGRADED"
		status.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return status
	}
	status.Message = "Running"
	return status
}
