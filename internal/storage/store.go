package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
	pragmaSynchronous    = `PRAGMA synchronous=FULL`
)

// Store is the SQLite-backed KeyValue. It also owns the audit tables.
type Store struct {
	db   *sql.DB
	path string

	Audit AuditRepository
}

var _ KeyValue = (*Store)(nil)

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	// One writer keeps set-then-get ordering trivially consistent.
	db.SetMaxOpenConns(1)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:    db,
		path:  path,
		Audit: &auditRepository{db: db},
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_slots WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get slot %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the slot, bumps the write generation and stamps
// initialized_at on the first write, all in one transaction.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("set slot: key is required")
	}
	now := fmtTime(nowUTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set slot %q: begin tx: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_slots(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set slot %q: upsert: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE store_meta SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT) WHERE key = ?
	`, writeGenerationMetaKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set slot %q: bump generation: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO store_meta(key, value) VALUES(?, ?)`, initializedAtMetaKey, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set slot %q: mark initialized: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set slot %q: commit: %w", key, err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM store_meta WHERE key IN (?, ?, ?)`,
		schemaVersionMetaKey, writeGenerationMetaKey, initializedAtMetaKey)
	if err != nil {
		return Stats{}, fmt.Errorf("read storage stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Stats{}, fmt.Errorf("read storage stats: scan: %w", err)
		}
		switch key {
		case schemaVersionMetaKey:
			stats.SchemaVersion, err = strconv.Atoi(value)
		case writeGenerationMetaKey:
			stats.WriteGeneration, err = parseUint(value)
		case initializedAtMetaKey:
			var t time.Time
			if t, err = parseTime(value); err == nil {
				stats.InitializedAt = &t
			}
		}
		if err != nil {
			return Stats{}, fmt.Errorf("read storage stats: parse %s: %w", key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("read storage stats: iterate: %w", err)
	}
	return stats, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout, pragmaSynchronous}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Chmod(p, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set permissions on %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
