package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrSymbolRequired = errors.New("symbol and interval are required")
	ErrNotFound       = errors.New("record not found")
)

// KlineQueries reads and writes the kline cache.
type KlineQueries struct {
	db *sql.DB
}

// NewKlineQueries creates a new KlineQueries instance.
func NewKlineQueries(db *sql.DB) *KlineQueries {
	return &KlineQueries{db: db}
}

// UpsertKlines stores klines in one transaction, replacing rows with the
// same (symbol, interval, open_time).
func (q *KlineQueries) UpsertKlines(ctx context.Context, klines []Kline) error {
	if len(klines) == 0 {
		return nil
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO klines (symbol, interval, open_time, open, high, low, close, volume, close_time, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			close_time = excluded.close_time,
			fetched_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, k := range klines {
		if k.Symbol == "" || k.Interval == "" {
			return ErrSymbolRequired
		}
		if _, err := stmt.ExecContext(ctx, k.Symbol, k.Interval, k.OpenTime,
			k.Open, k.High, k.Low, k.Close, k.Volume, k.CloseTime); err != nil {
			return fmt.Errorf("upsert kline %s %s %d: %w", k.Symbol, k.Interval, k.OpenTime, err)
		}
	}
	return tx.Commit()
}

// GetKlines returns klines with open_time in [from, to] ordered by time.
// A zero to means no upper bound.
func (q *KlineQueries) GetKlines(ctx context.Context, symbol, interval string, from, to int64) ([]Kline, error) {
	if symbol == "" || interval == "" {
		return nil, ErrSymbolRequired
	}
	if to <= 0 {
		to = 1<<63 - 1
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT symbol, interval, open_time, open, high, low, close, volume, close_time
		FROM klines
		WHERE symbol = ? AND interval = ? AND open_time >= ? AND open_time <= ?
		ORDER BY open_time ASC
	`, symbol, interval, from, to)
	if err != nil {
		return nil, fmt.Errorf("query klines: %w", err)
	}
	defer rows.Close()

	var out []Kline
	for rows.Next() {
		var k Kline
		if err := rows.Scan(&k.Symbol, &k.Interval, &k.OpenTime, &k.Open, &k.High,
			&k.Low, &k.Close, &k.Volume, &k.CloseTime); err != nil {
			return nil, fmt.Errorf("scan kline: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// LatestOpenTime returns the newest stored open_time for a series.
func (q *KlineQueries) LatestOpenTime(ctx context.Context, symbol, interval string) (int64, error) {
	if symbol == "" || interval == "" {
		return 0, ErrSymbolRequired
	}
	var latest sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		`SELECT MAX(open_time) FROM klines WHERE symbol = ? AND interval = ?`,
		symbol, interval).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("query latest kline: %w", err)
	}
	if !latest.Valid {
		return 0, ErrNotFound
	}
	return latest.Int64, nil
}

// CountKlines returns how many bars are stored for a series.
func (q *KlineQueries) CountKlines(ctx context.Context, symbol, interval string) (int, error) {
	if symbol == "" || interval == "" {
		return 0, ErrSymbolRequired
	}
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM klines WHERE symbol = ? AND interval = ?`,
		symbol, interval).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count klines: %w", err)
	}
	return n, nil
}
