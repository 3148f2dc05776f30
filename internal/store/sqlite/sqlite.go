// Package sqlite implements store.Store on SQLite.
//
// Notes vs the other database backends:
//   - modernc.org/sqlite is a pure-Go driver, so this backend works without
//     cgo and is the default choice for single-host deployments.
//   - Upserts use INSERT ... ON CONFLICT, which requires the PRIMARY KEY on
//     the record name.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"pagecms/internal/store"
)

func init() {
	store.Register("sqlite", New)
}

const createSQL = `CREATE TABLE IF NOT EXISTS content_records (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

type SQLiteStore struct {
	db     *sql.DB
	record string
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: create table: %w", err)
	}
	return &SQLiteStore{db: db, record: cfg.Record}, nil
}

func (s *SQLiteStore) Close() { _ = s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) (store.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM content_records WHERE name = ?`, s.record).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: load: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		log.Printf("store/sqlite: malformed record %q: %v; discarding", s.record, err)
		return store.Record{}, nil
	}
	if rec == nil {
		rec = store.Record{}
	}
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite store: encode: %w", err)
	}

	// Timestamps as RFC3339Nano strings: SQLite has no timestamp type and
	// TEXT affinity round-trips reliably.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_records (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		s.record, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite store: save: %w", err)
	}
	return nil
}
