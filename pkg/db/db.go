package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const memoryPath = ":memory:"

// Database is the kline cache. A file-backed cache runs in WAL mode so a
// healthcheck or a second reader does not block a fetch in progress.
type Database struct {
	DB   *sql.DB
	path string
}

// New opens (and creates if needed) the SQLite cache at path. ":memory:"
// opens a private in-memory cache for tests.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	dsn := path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: a second one would see a different :memory: database
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(time.Hour)

	return &Database{DB: handle, path: path}, nil
}

// Klines returns the kline query set bound to this database.
func (d *Database) Klines() *KlineQueries {
	return NewKlineQueries(d.DB)
}

// Ping checks the cache answers within timeout and reports its journal mode.
func (d *Database) Ping(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return "", fmt.Errorf("ping %s: %w", d.path, err)
	}
	var mode string
	if err := d.DB.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		return "", fmt.Errorf("read journal mode: %w", err)
	}
	return strings.ToLower(mode), nil
}

// Close releases the underlying DB handle.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
