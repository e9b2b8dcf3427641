package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MaxKlineLimit is the largest page /api/v3/klines serves.
const MaxKlineLimit = 1000

// MarketDataClient wraps the public spot market data endpoints.
type MarketDataClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMarketDataClient(testnet bool) *MarketDataClient {
	base := "https://api.binance.com"
	if testnet {
		base = "https://testnet.binance.vision"
	}
	return NewMarketDataClientWithBase(base)
}

// NewMarketDataClientWithBase targets an arbitrary REST root, e.g. a mirror
// or a test server.
func NewMarketDataClientWithBase(baseURL string) *MarketDataClient {
	return &MarketDataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping checks connectivity.
func (c *MarketDataClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "/api/v3/ping", nil)
	return err
}

// Klines fetches one page of klines.
func (c *MarketDataClient) Klines(ctx context.Context, q KlineQuery) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.StartTime > 0 {
		params.Set("startTime", strconv.FormatInt(q.StartTime, 10))
	}
	if q.EndTime > 0 {
		params.Set("endTime", strconv.FormatInt(q.EndTime, 10))
	}

	body, err := c.do(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, err
	}
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	klines := make([]Kline, 0, len(raw))
	for _, item := range raw {
		if len(item) < 9 {
			continue
		}
		klines = append(klines, Kline{
			OpenTime:       toInt64(item[0]),
			Open:           toFloat(item[1]),
			High:           toFloat(item[2]),
			Low:            toFloat(item[3]),
			Close:          toFloat(item[4]),
			Volume:         toFloat(item[5]),
			CloseTime:      toInt64(item[6]),
			QuoteVolume:    toFloat(item[7]),
			NumberOfTrades: toInt(item[8]),
		})
	}
	return klines, nil
}

func (c *MarketDataClient) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if params != nil {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("binance market data %s status %d: %s", path, res.StatusCode, string(body))
	}
	return body, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		i, _ := strconv.ParseInt(t, 10, 64)
		return i
	default:
		return 0
	}
}

func toInt(v any) int {
	return int(toInt64(v))
}
