package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	market "backtest-core/pkg/market/binance"
)

// ErrNoKlines is returned when a source yields no bars.
var ErrNoKlines = errors.New("no klines available")

// Kline represents a single candlestick.
type Kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// KlineClient is the subset of the market data client the service needs.
type KlineClient interface {
	Klines(ctx context.Context, q market.KlineQuery) ([]market.Kline, error)
}

// HistoricalDataService fetches historical market data.
type HistoricalDataService struct {
	client  KlineClient
	limiter *rate.Limiter
}

// NewHistoricalDataService creates a service that issues at most
// requestsPerSecond kline requests (burst 1). Zero or less disables throttling.
func NewHistoricalDataService(client KlineClient, requestsPerSecond float64) *HistoricalDataService {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &HistoricalDataService{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// GetKlineRange pages through [start, end) one request at a time until the
// exchange returns a short page or the range is covered.
func (s *HistoricalDataService) GetKlineRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Kline, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("kline range: end %s not after start %s", end, start)
	}

	var out []Kline
	cursor := start.UnixMilli()
	endMs := end.UnixMilli() - 1
	for cursor <= endMs {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.client.Klines(ctx, market.KlineQuery{
			Symbol:    symbol,
			Interval:  interval,
			Limit:     market.MaxKlineLimit,
			StartTime: cursor,
			EndTime:   endMs,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s from %d: %w", symbol, interval, cursor, err)
		}
		if len(page) == 0 {
			break
		}
		out = append(out, fromMarket(page)...)

		next := page[len(page)-1].OpenTime + 1
		if next <= cursor || len(page) < market.MaxKlineLimit {
			break
		}
		cursor = next
	}

	if len(out) == 0 {
		return nil, ErrNoKlines
	}
	return out, nil
}

func fromMarket(raw []market.Kline) []Kline {
	out := make([]Kline, 0, len(raw))
	for _, k := range raw {
		out = append(out, Kline{
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			CloseTime: k.CloseTime,
		})
	}
	return out
}

// HighLowClose extracts the three series the indicators need.
func HighLowClose(klines []Kline) (high, low, close []float64) {
	high = make([]float64, len(klines))
	low = make([]float64, len(klines))
	close = make([]float64, len(klines))
	for i, k := range klines {
		high[i], low[i], close[i] = k.High, k.Low, k.Close
	}
	return high, low, close
}
