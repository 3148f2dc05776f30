// Package postgres implements store.Store on Postgres via pgx.
//
// The record body is stored as JSONB, which keeps it queryable in place
// (useful for inspecting what an operator last saved) while the Go side only
// ever reads and writes the whole record.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pagecms/internal/store"
)

func init() {
	store.Register("postgres", New)
}

const createSQL = `CREATE TABLE IF NOT EXISTS content_records (
	name       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

type PostgresStore struct {
	pool   *pgxpool.Pool
	record string
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: create table: %w", err)
	}
	return &PostgresStore{pool: pool, record: cfg.Record}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Load(ctx context.Context) (store.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM content_records WHERE name = $1`, s.record).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: load: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("store/postgres: malformed record %q: %v; discarding", s.record, err)
		return store.Record{}, nil
	}
	if rec == nil {
		rec = store.Record{}
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres store: encode: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO content_records (name, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		s.record, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres store: save: %w", err)
	}
	return nil
}
