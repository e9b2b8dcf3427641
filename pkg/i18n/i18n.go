package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	ConfigLoadFailed   string
	UsingDBPath        string
	DBInitFailed       string
	DBMigrationsFailed string
	ServerListening    string
	APIServerError     string
	UnknownCommand     string

	// Data
	KlinesLoaded     string
	KlinesLoadFailed string
	KlinesCached     string
	KlinesResumed    string
	FetchComplete    string

	// Strategy
	StrategyConfigLoaded     string
	StrategyConfigLoadFailed string
	StrategyDefaultParams    string
	SignalsGenerated         string

	// Backtest
	PositionOpened   string
	TradeClosed      string
	PositionDangling string
	RunCompleted     string
	RunFailed        string
	NoTrades         string
	SummaryLine      string
	SweepStarted     string
	SweepResult      string

	// Auth
	TokenIssued string
	TokenFailed string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting backtester...",
	ConfigLoaded:       "Config loaded (commission=%.4f, end_of_data=%s, source=%s)",
	ConfigLoadFailed:   "Failed to load config: %v",
	UsingDBPath:        "Using kline store: %s",
	DBInitFailed:       "Failed to open kline store: %v",
	DBMigrationsFailed: "Failed to migrate kline store: %v",
	ServerListening:    "API server listening on :%s",
	APIServerError:     "API server error: %v",
	UnknownCommand:     "Unknown command %q (expected run, fetch, serve or token)",

	// Data
	KlinesLoaded:     "Loaded %d klines for %s %s",
	KlinesLoadFailed: "Failed to load klines: %v",
	KlinesCached:     "Cached %d %s %s klines",
	KlinesResumed:    "Resuming %s %s download from %s",
	FetchComplete:    "Fetched %d klines for %s %s into %s",

	// Strategy
	StrategyConfigLoaded:     "Loaded %d strategy parameter set(s) from %s",
	StrategyConfigLoadFailed: "Failed to load strategy config: %v",
	StrategyDefaultParams:    "No strategy config at %s, using default parameters",
	SignalsGenerated:         "Generated %d signals (%d entries) for %s",

	// Backtest
	PositionOpened:   "Opened %s @ %.4f (tp=%.4f sl=%.4f) at bar %d",
	TradeClosed:      "Closed %s %s at bar %d: pnl=%.4f (%s)",
	PositionDangling: "Discarded %s position opened at bar %d (no exit before end of data)",
	RunCompleted:     "Run %s completed: %d bars, %d trades",
	RunFailed:        "Backtest failed: %v",
	NoTrades:         "Run %s closed no trades; nothing to summarize",
	SummaryLine:      "Total profit: %.4f | Win rate: %.2f%% | Profit factor: %s | Trades: %d",
	SweepStarted:     "Sweeping %d parameter set(s) with %d worker(s)",
	SweepResult:      "[%s] %s",

	// Auth
	TokenIssued: "Issued API token for %s (expires %s)",
	TokenFailed: "Failed to issue token: %v",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "回測程式啟動中...",
	ConfigLoaded:       "設定已載入（手續費=%.4f，資料結束策略=%s，資料來源=%s）",
	ConfigLoadFailed:   "載入設定失敗：%v",
	UsingDBPath:        "K線資料庫：%s",
	DBInitFailed:       "開啟K線資料庫失敗：%v",
	DBMigrationsFailed: "K線資料庫遷移失敗：%v",
	ServerListening:    "API 伺服器監聽於 :%s",
	APIServerError:     "API 伺服器錯誤：%v",
	UnknownCommand:     "未知指令 %q（可用：run、fetch、serve、token）",

	// Data
	KlinesLoaded:     "已載入 %d 根K線：%s %s",
	KlinesLoadFailed: "載入K線失敗：%v",
	KlinesCached:     "已快取 %d 根K線：%s %s",
	KlinesResumed:    "從 %[3]s 續傳 %[1]s %[2]s K線",
	FetchComplete:    "已下載 %d 根K線（%s %s）至 %s",

	// Strategy
	StrategyConfigLoaded:     "已從 %[2]s 載入 %[1]d 組策略參數",
	StrategyConfigLoadFailed: "載入策略設定失敗：%v",
	StrategyDefaultParams:    "找不到策略設定 %s，使用預設參數",
	SignalsGenerated:         "已產生 %d 個訊號（進場 %d 次）：%s",

	// Backtest
	PositionOpened:   "開倉 %s @ %.4f（停利=%.4f 停損=%.4f），第 %d 根",
	TradeClosed:      "平倉 %s %s，第 %d 根：損益=%.4f（%s）",
	PositionDangling: "捨棄第 %[2]d 根開立的 %[1]s 持倉（資料結束前未出場）",
	RunCompleted:     "回測 %s 完成：%d 根K線，%d 筆交易",
	RunFailed:        "回測失敗：%v",
	NoTrades:         "回測 %s 沒有任何已平倉交易，無法統計",
	SummaryLine:      "總損益：%.4f｜勝率：%.2f%%｜獲利因子：%s｜交易數：%d",
	SweepStarted:     "參數掃描：%d 組參數，%d 個工作者",
	SweepResult:      "[%s] %s",

	// Auth
	TokenIssued: "已為 %s 簽發 API 權杖（到期 %s）",
	TokenFailed: "簽發權杖失敗：%v",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
