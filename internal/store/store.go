// Package store keeps whole records in named slots of a SQLite database.
//
// A slot holds one msgpack-encoded value. Writes replace the previous value
// wholesale; there is no history and no merging.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned by Get when a slot has never been written.
var ErrNotFound = errors.New("store: slot not found")

type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path.
//
// The database is configured with:
//   - WAL mode
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//
// Opening the same path again is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get decodes the value stored under key into v.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("read slot %q: %w", key, err)
	}

	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode slot %q: %w", key, err)
	}
	return nil
}

// Set encodes v and stores it under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode slot %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write slot %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing slot is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete slot %q: %w", key, err)
	}
	return nil
}

// Load returns the record under key. When the slot is empty, or reset is
// set, def is written to the slot and returned instead.
func Load[T any](ctx context.Context, s *Store, key string, def T, reset bool) (T, error) {
	if !reset {
		var v T
		err := s.Get(ctx, key, &v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return def, err
		}
	}

	if err := s.Set(ctx, key, def); err != nil {
		return def, err
	}
	return def, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
