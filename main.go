package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"backtest-core/internal/api"
	"backtest-core/internal/backtest"
	"backtest-core/internal/data"
	"backtest-core/internal/events"
	"backtest-core/internal/monitor"
	"backtest-core/internal/strategy"
	"backtest-core/internal/sweep"
	"backtest-core/pkg/config"
	"backtest-core/pkg/db"
	"backtest-core/pkg/i18n"
	market "backtest-core/pkg/market/binance"

	"github.com/google/uuid"
)

var buildVersion = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Commission, cfg.EndOfData, cfg.DataSource)

	cmd, args := "run", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		if err := runBacktest(ctx, cfg); err != nil {
			stop()
			log.Fatalf(i18n.Get("RunFailed"), err)
		}
	case "fetch":
		if err := fetchKlines(ctx, cfg); err != nil {
			stop()
			log.Fatalf(i18n.Get("KlinesLoadFailed"), err)
		}
	case "serve":
		if err := serve(ctx, cfg); err != nil {
			stop()
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	case "token":
		if err := issueToken(cfg, args); err != nil {
			stop()
			log.Fatalf(i18n.Get("TokenFailed"), err)
		}
	default:
		stop()
		log.Fatalf(i18n.Get("UnknownCommand"), cmd)
	}
}

// runBacktest evaluates every configured parameter set over the price
// history: a single set is one logged run, several become a sweep.
func runBacktest(ctx context.Context, cfg *config.Config) error {
	klines, closeStore, err := loadKlines(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	btCfg, params, err := loadStrategies(cfg)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	if len(params) == 1 {
		done := logProgress(bus, true)
		defer done()
		return runSingle(btCfg, params[0], klines, bus)
	}

	done := logProgress(bus, false)
	defer done()
	workers := cfg.SweepWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Printf(i18n.Get("SweepStarted"), len(params), workers)
	sw := &sweep.Sweeper{Config: btCfg, Workers: workers, Bus: bus}
	outcomes, err := sw.Run(ctx, klines, params)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		var line string
		if o.Err != nil {
			line = fmt.Sprintf(i18n.Get("NoTrades"), o.RunID)
		} else {
			line = formatSummary(o.Summary)
		}
		log.Printf(i18n.Get("SweepResult"), o.Params.Label(), line)
	}
	if best, ok := sweep.Best(outcomes); ok {
		log.Printf(i18n.Get("SweepResult"), "best="+best.Params.Label(), formatSummary(best.Summary))
	}
	return nil
}

func runSingle(cfg backtest.Config, p strategy.Params, klines []data.Kline, bus *events.Bus) error {
	stream, err := strategy.NewRSIBandsStrategy(p, klines)
	if err != nil {
		return err
	}
	log.Printf(i18n.Get("SignalsGenerated"), len(klines), stream.Entries(), stream.Name())

	runID := uuid.NewString()
	obs := &events.BusObserver{Bus: bus, RunID: runID, Strategy: stream.Name()}
	res, err := backtest.RunWithID(runID, cfg, stream, obs)
	if err != nil {
		return err
	}
	if res.Dangling != nil {
		log.Printf(i18n.Get("PositionDangling"), res.Dangling.Side, res.Dangling.OpenIndex)
	}

	summary, err := backtest.Summarize(res.Ledger)
	obs.Completed(res.Bars, summary, err)
	if errors.Is(err, backtest.ErrInsufficientData) {
		log.Printf(i18n.Get("NoTrades"), res.ID)
		return nil
	}
	if err != nil {
		return err
	}
	log.Println(formatSummary(summary))
	return nil
}

// fetchKlines downloads START_DATE..END_DATE from Binance into SQLite.
func fetchKlines(ctx context.Context, cfg *config.Config) error {
	database, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	src := data.BinanceSource{
		Service: newHistoricalService(cfg),
		Store:   database.Klines(),
		Series:  seriesOf(cfg),
	}
	klines, err := src.Load(ctx)
	if err != nil {
		return err
	}
	log.Printf(i18n.Get("FetchComplete"), len(klines), cfg.Symbol, cfg.Interval, cfg.DBPath)
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	klines, closeStore, err := loadKlines(ctx, cfg)
	if err != nil {
		// raw signal backtests still work without history
		log.Printf(i18n.Get("KlinesLoadFailed"), err)
		klines, closeStore = nil, func() {}
	}
	defer closeStore()

	bus := events.NewBus()
	done := logProgress(bus, false)
	defer done()
	metrics := monitor.NewMetrics()
	stopMetrics := metrics.Watch(bus)
	defer stopMetrics()

	server := api.NewServer(cfg.Backtest(), klines, bus, metrics, api.SystemMeta{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Source:   cfg.DataSource,
		Version:  buildVersion,
	}, cfg.JWTSecret)
	server.SweepWorkers = cfg.SweepWorkers

	errCh := make(chan error, 1)
	go func() {
		log.Printf(i18n.Get("ServerListening"), cfg.Port)
		errCh <- server.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// issueToken prints a bearer token: token [subject] [ttl].
func issueToken(cfg *config.Config, args []string) error {
	subject, ttl := "backtester", 72*time.Hour
	if len(args) > 0 {
		subject = args[0]
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return err
		}
		ttl = d
	}

	expiresAt := time.Now().Add(ttl)
	token, err := api.GenerateToken(subject, cfg.JWTSecret, expiresAt)
	if err != nil {
		return err
	}
	log.Printf(i18n.Get("TokenIssued"), subject, expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
	return nil
}

func openStore(path string) (*db.Database, error) {
	log.Printf(i18n.Get("UsingDBPath"), path)
	database, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf(i18n.Get("DBInitFailed"), err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf(i18n.Get("DBMigrationsFailed"), err)
	}
	return database, nil
}

func newHistoricalService(cfg *config.Config) *data.HistoricalDataService {
	return data.NewHistoricalDataService(market.NewMarketDataClient(cfg.BinanceTestnet), cfg.BinanceRateLimit)
}

func seriesOf(cfg *config.Config) data.Series {
	return data.Series{Symbol: cfg.Symbol, Interval: cfg.Interval, Start: cfg.StartDate, End: cfg.EndDate}
}

// loadKlines reads the history from DATA_SOURCE. The returned func closes
// the kline store when one was opened.
func loadKlines(ctx context.Context, cfg *config.Config) ([]data.Kline, func(), error) {
	var (
		src       data.Source
		closeFunc = func() {}
	)

	switch cfg.DataSource {
	case config.SourceCSV:
		src = data.CSVSource{Path: cfg.DataCSVPath}
	case config.SourceSQLite, config.SourceBinance:
		database, err := openStore(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		closeFunc = func() { database.Close() }
		if cfg.DataSource == config.SourceSQLite {
			src = data.StoreSource{Queries: database.Klines(), Series: seriesOf(cfg)}
		} else {
			src = data.BinanceSource{Service: newHistoricalService(cfg), Store: database.Klines(), Series: seriesOf(cfg)}
		}
	}

	klines, err := src.Load(ctx)
	if err != nil {
		closeFunc()
		return nil, nil, err
	}
	log.Printf(i18n.Get("KlinesLoaded"), len(klines), cfg.Symbol, cfg.Interval)
	return klines, closeFunc, nil
}

// loadStrategies reads STRATEGY_CONFIG, falling back to the default
// parameter set when the file does not exist.
func loadStrategies(cfg *config.Config) (backtest.Config, []strategy.Params, error) {
	btCfg := cfg.Backtest()

	file, err := strategy.LoadConfig(cfg.StrategyConfig)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf(i18n.Get("StrategyDefaultParams"), cfg.StrategyConfig)
		return btCfg, []strategy.Params{strategy.DefaultParams()}, nil
	}
	if err != nil {
		return btCfg, nil, fmt.Errorf(i18n.Get("StrategyConfigLoadFailed"), err)
	}
	log.Printf(i18n.Get("StrategyConfigLoaded"), len(file.Strategies), cfg.StrategyConfig)

	btCfg, err = file.BacktestConfig(btCfg)
	if err != nil {
		return btCfg, nil, fmt.Errorf(i18n.Get("StrategyConfigLoadFailed"), err)
	}
	return btCfg, file.Strategies, nil
}

// logProgress logs run events from the bus until the returned func is
// called. Position and trade events are only logged when detailed is set.
func logProgress(bus *events.Bus, detailed bool) func() {
	completed, unsubCompleted := bus.Subscribe(events.EventRunCompleted, 256)
	unsubs := []func(){unsubCompleted}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range completed {
			rc := ev.(events.RunCompleted)
			log.Printf(i18n.Get("RunCompleted"), rc.RunID, rc.Bars, rc.Summary.TotalTrades)
		}
	}()

	if detailed {
		opened, unsubOpened := bus.Subscribe(events.EventPositionOpened, 1024)
		closed, unsubClosed := bus.Subscribe(events.EventTradeClosed, 1024)
		unsubs = append(unsubs, unsubOpened, unsubClosed)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for ev := range opened {
				p := ev.(events.PositionOpened).Position
				log.Printf(i18n.Get("PositionOpened"), p.Side, p.EntryPrice, p.TakeProfit, p.StopLoss, p.OpenIndex)
			}
		}()
		go func() {
			defer wg.Done()
			for ev := range closed {
				t := ev.(events.TradeClosed).Trade
				log.Printf(i18n.Get("TradeClosed"), t.Side, t.Outcome, t.CloseIndex, t.ProfitLoss, t.Reason)
			}
		}()
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
		wg.Wait()
	}
}

func formatSummary(s backtest.Summary) string {
	pf := fmt.Sprintf("%.4f", s.ProfitFactor)
	if math.IsInf(s.ProfitFactor, 1) {
		pf = "inf"
	}
	return fmt.Sprintf(i18n.Get("SummaryLine"), s.TotalProfit, s.WinRate*100, pf, s.TotalTrades)
}
