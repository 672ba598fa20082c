package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ZaguanLabs/subflow"
	_ "modernc.org/sqlite"
)

// SQLiteCache persists translations in a local SQLite file so that reruns
// over the same episode skip sentences already translated.
type SQLiteCache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS translations (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

// NewSQLiteCache opens or creates the cache database at path.
// If ttlSeconds is 0 or negative, entries never expire.
func NewSQLiteCache(path string, ttlSeconds int) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &subflow.CacheError{Message: "open sqlite db", Cause: err}
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, &subflow.CacheError{Message: fmt.Sprintf("apply pragma %q", pragma), Cause: execErr}
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, &subflow.CacheError{Message: "create schema", Cause: err}
	}

	return &SQLiteCache{
		db:   db,
		path: path,
		ttl:  ttlFromSeconds(ttlSeconds),
		now:  time.Now,
	}, nil
}

// Path returns the database file path.
func (c *SQLiteCache) Path() string {
	return c.path
}

// Get retrieves a value. Expired rows and read errors are misses.
func (c *SQLiteCache) Get(key string) (string, bool) {
	var value string
	var created int64
	err := c.db.QueryRowContext(context.Background(),
		"SELECT value, created_at FROM translations WHERE key = ?", key).Scan(&value, &created)
	if err != nil {
		return "", false
	}
	if c.expired(created, c.now()) {
		_, _ = c.db.ExecContext(context.Background(), "DELETE FROM translations WHERE key = ?", key)
		return "", false
	}
	return value, true
}

// Set inserts or replaces a value.
func (c *SQLiteCache) Set(key string, value string) error {
	_, err := c.db.ExecContext(context.Background(),
		`INSERT INTO translations (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, c.now().Unix())
	if err != nil {
		return &subflow.CacheError{Message: "sqlite set failed", Cause: err}
	}
	return nil
}

func (c *SQLiteCache) expired(created int64, now time.Time) bool {
	return c.ttl > 0 && now.Sub(time.Unix(created, 0)) > c.ttl
}

// Entries returns all non-expired rows.
func (c *SQLiteCache) Entries() (map[string]string, error) {
	rows, err := c.db.QueryContext(context.Background(), "SELECT key, value, created_at FROM translations")
	if err != nil {
		return nil, &subflow.CacheError{Message: "sqlite query failed", Cause: err}
	}
	defer rows.Close()

	now := c.now()
	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		var created int64
		if err := rows.Scan(&key, &value, &created); err != nil {
			return nil, &subflow.CacheError{Message: "sqlite scan failed", Cause: err}
		}
		if c.expired(created, now) {
			continue
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &subflow.CacheError{Message: "sqlite rows failed", Cause: err}
	}
	return result, nil
}

// Prune deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Prune() (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(context.Background(), "DELETE FROM translations WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, &subflow.CacheError{Message: "sqlite prune failed", Cause: err}
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

var (
	_ TranslationCache = (*SQLiteCache)(nil)
	_ Enumerable       = (*SQLiteCache)(nil)
)
