package data

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backtest-core/pkg/db"
	"backtest-core/pkg/i18n"
)

// Source yields the price history a backtest runs over, oldest first.
type Source interface {
	Load(ctx context.Context) ([]Kline, error)
}

// Series identifies one symbol/interval range.
type Series struct {
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
}

// CSVSource reads a local CSV export.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(context.Context) ([]Kline, error) {
	return LoadCSV(s.Path)
}

// StoreSource reads previously fetched klines from SQLite.
type StoreSource struct {
	Queries *db.KlineQueries
	Series  Series
}

func (s StoreSource) Load(ctx context.Context) ([]Kline, error) {
	var from, to int64
	if !s.Series.Start.IsZero() {
		from = s.Series.Start.UnixMilli()
	}
	if !s.Series.End.IsZero() {
		to = s.Series.End.UnixMilli() - 1
	}
	rows, err := s.Queries.GetKlines(ctx, s.Series.Symbol, s.Series.Interval, from, to)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoKlines
	}
	out := make([]Kline, 0, len(rows))
	for _, r := range rows {
		out = append(out, Kline{
			OpenTime:  r.OpenTime,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			CloseTime: r.CloseTime,
		})
	}
	return out, nil
}

// BinanceSource downloads a range and, when Store is set, writes it through
// to SQLite so later runs can use StoreSource. With a store that already
// holds the series from Start onwards, only bars after the newest stored one
// are downloaded.
type BinanceSource struct {
	Service *HistoricalDataService
	Store   *db.KlineQueries
	Series  Series
}

func (s BinanceSource) Load(ctx context.Context) ([]Kline, error) {
	if s.Series.Start.IsZero() || s.Series.End.IsZero() {
		return nil, errors.New("binance source needs a start and end date")
	}
	if s.Store == nil {
		return s.Service.GetKlineRange(ctx, s.Series.Symbol, s.Series.Interval, s.Series.Start, s.Series.End)
	}

	from, err := s.resumeFrom(ctx)
	if err != nil {
		return nil, err
	}
	if from.Before(s.Series.End) {
		if from.After(s.Series.Start) {
			log.Printf(i18n.Get("KlinesResumed"), s.Series.Symbol, s.Series.Interval, from.UTC().Format(time.RFC3339))
		}
		klines, err := s.Service.GetKlineRange(ctx, s.Series.Symbol, s.Series.Interval, from, s.Series.End)
		if err != nil && !(errors.Is(err, ErrNoKlines) && from.After(s.Series.Start)) {
			return nil, err
		}
		if err := s.Store.UpsertKlines(ctx, toRows(s.Series, klines)); err != nil {
			return nil, fmt.Errorf("cache klines: %w", err)
		}
		log.Printf(i18n.Get("KlinesCached"), len(klines), s.Series.Symbol, s.Series.Interval)
	}
	return StoreSource{Queries: s.Store, Series: s.Series}.Load(ctx)
}

// resumeFrom returns the first open time still missing from the store. The
// stored bars only count when the store holds the bar opening at Start, so a
// cache that begins later is refetched in full.
func (s BinanceSource) resumeFrom(ctx context.Context) (time.Time, error) {
	latest, err := s.Store.LatestOpenTime(ctx, s.Series.Symbol, s.Series.Interval)
	if errors.Is(err, db.ErrNotFound) {
		return s.Series.Start, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	startMs := s.Series.Start.UnixMilli()
	if latest < startMs {
		return s.Series.Start, nil
	}
	first, err := s.Store.GetKlines(ctx, s.Series.Symbol, s.Series.Interval, startMs, startMs)
	if err != nil {
		return time.Time{}, err
	}
	if len(first) == 0 {
		return s.Series.Start, nil
	}
	return time.UnixMilli(latest + 1), nil
}

func toRows(series Series, klines []Kline) []db.Kline {
	rows := make([]db.Kline, 0, len(klines))
	for _, k := range klines {
		rows = append(rows, db.Kline{
			Symbol:    series.Symbol,
			Interval:  series.Interval,
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			CloseTime: k.CloseTime,
		})
	}
	return rows
}
