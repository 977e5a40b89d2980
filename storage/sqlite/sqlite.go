// Package sqlite provides a shared cache tier on SQLite. It suits the
// slow slot of a tier list: survives restarts and is visible to every
// process on the host.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IvanBrykalov/cacheme/cache"
	"github.com/IvanBrykalov/cacheme/serializer"
)

// ErrNoSerializer is returned when a byte-backed write arrives without a
// serializer; the sqlite tier cannot hold raw Go values.
var ErrNoSerializer = errors.New("sqlite: node serializer required")

// Options configures the tier. Zero values are safe except Path.
type Options struct {
	// Path is the database file ("file:cache.db" or a plain path).
	Path string

	// Table is the entry table name. Default "cacheme".
	Table string

	// BusyTimeout in milliseconds. Default 5000.
	BusyTimeout int

	// WALMode enables write-ahead logging. Recommended whenever more
	// than one process opens the file.
	WALMode bool
}

// Store is the SQLite tier. Safe for concurrent use; the pool is pinned
// to a single connection, which is how SQLite performs best.
type Store struct {
	db    *sql.DB
	table string

	stmtGet    *sql.Stmt
	stmtSet    *sql.Stmt
	stmtRemove *sql.Stmt
}

// New opens (and if needed creates) the database and prepares the hot
// statements.
func New(opt Options) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("sqlite: Path must be set")
	}
	if opt.Table == "" {
		opt.Table = "cacheme"
	}
	if opt.BusyTimeout <= 0 {
		opt.BusyTimeout = 5000
	}

	db, err := sql.Open("sqlite", opt.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opt.BusyTimeout),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if opt.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		expire_at  INTEGER NOT NULL DEFAULT 0
	)`, opt.Table)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create table: %w", err)
	}

	s := &Store{db: db, table: opt.Table}
	if s.stmtGet, err = db.Prepare(fmt.Sprintf(
		"SELECT value, updated_at, expire_at FROM %s WHERE key = ?", opt.Table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: prepare get: %w", err)
	}
	if s.stmtSet, err = db.Prepare(fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at, expire_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		 updated_at = excluded.updated_at, expire_at = excluded.expire_at`, opt.Table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: prepare set: %w", err)
	}
	if s.stmtRemove, err = db.Prepare(fmt.Sprintf(
		"DELETE FROM %s WHERE key = ?", opt.Table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: prepare remove: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	_ = s.stmtGet.Close()
	_ = s.stmtSet.Close()
	_ = s.stmtRemove.Close()
	return s.db.Close()
}

// ---- cache.Storage implementation ----

// Get returns the stored payload for key, or nil on miss. Expired rows
// are deleted lazily here.
func (s *Store) Get(ctx context.Context, key string) (*cache.CachedData, error) {
	var (
		value   []byte
		updated int64
		expire  int64
	)
	err := s.stmtGet.QueryRowContext(ctx, key).Scan(&value, &updated, &expire)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	if expire != 0 && expire < time.Now().UnixNano() {
		if _, derr := s.stmtRemove.ExecContext(ctx, key); derr != nil {
			cache.Logger.Debug().Err(derr).Str("key", key).Msg("expired row cleanup failed")
		}
		return nil, nil
	}
	return &cache.CachedData{Data: value, UpdatedAt: time.Unix(0, updated).UTC(), Encoded: true}, nil
}

// GetAll returns one slot per key, in order; nil slots are misses.
// Keys are fetched in a single SELECT ... IN query.
func (s *Store) GetAll(ctx context.Context, keys []string) ([]*cache.CachedData, error) {
	out := make([]*cache.CachedData, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	slot := make(map[string]int, len(keys))
	for i, k := range keys {
		args[i] = k
		slot[k] = i
	}
	query := fmt.Sprintf(
		"SELECT key, value, updated_at, expire_at FROM %s WHERE key IN (%s)",
		s.table, placeholders(len(keys)))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get all: %w", err)
	}
	defer rows.Close()

	now := time.Now().UnixNano()
	var expired []string
	for rows.Next() {
		var (
			key     string
			value   []byte
			updated int64
			expire  int64
		)
		if err := rows.Scan(&key, &value, &updated, &expire); err != nil {
			return nil, fmt.Errorf("sqlite: get all scan: %w", err)
		}
		if expire != 0 && expire < now {
			expired = append(expired, key)
			continue
		}
		out[slot[key]] = &cache.CachedData{Data: value, UpdatedAt: time.Unix(0, updated).UTC(), Encoded: true}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: get all rows: %w", err)
	}
	for _, k := range expired {
		if _, derr := s.stmtRemove.ExecContext(ctx, k); derr != nil {
			cache.Logger.Debug().Err(derr).Str("key", k).Msg("expired row cleanup failed")
		}
	}
	return out, nil
}

// Set encodes value with ser and upserts it under key.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration, ser serializer.Serializer) error {
	if ser == nil {
		return ErrNoSerializer
	}
	payload, err := ser.Dumps(value)
	if err != nil {
		return fmt.Errorf("sqlite: encode %q: %w", key, err)
	}
	now := time.Now()
	expire := int64(0)
	if ttl > 0 {
		expire = now.Add(ttl).UnixNano()
	}
	if _, err := s.stmtSet.ExecContext(ctx, key, payload, now.UnixNano(), expire); err != nil {
		return fmt.Errorf("sqlite: set: %w", err)
	}
	return nil
}

// SetAll writes all items with a shared ttl inside one transaction.
func (s *Store) SetAll(ctx context.Context, items []cache.Item, ttl time.Duration, ser serializer.Serializer) error {
	if len(items) == 0 {
		return nil
	}
	if ser == nil {
		return ErrNoSerializer
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt := tx.StmtContext(ctx, s.stmtSet)
	now := time.Now()
	expire := int64(0)
	if ttl > 0 {
		expire = now.Add(ttl).UnixNano()
	}
	for _, it := range items {
		payload, err := ser.Dumps(it.Value)
		if err != nil {
			return fmt.Errorf("sqlite: encode %q: %w", it.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, it.Key, payload, now.UnixNano(), expire); err != nil {
			return fmt.Errorf("sqlite: set all: %w", err)
		}
	}
	return tx.Commit()
}

// Remove deletes key if present.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.stmtRemove.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("sqlite: remove: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var _ cache.Storage = (*Store)(nil)
