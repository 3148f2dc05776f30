// Package mssql implements store.Store on SQL Server via database/sql.
//
// SQL Server has no ON CONFLICT clause; the upsert is an UPDATE followed by a
// conditional INSERT, which is race-free enough for this store's single-writer
// usage (one editing session owns the record).
package mssql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"pagecms/internal/store"
)

func init() {
	store.Register("mssql", New)
}

const createSQL = `IF OBJECT_ID('content_records', 'U') IS NULL
CREATE TABLE content_records (
	name       NVARCHAR(256) NOT NULL PRIMARY KEY,
	data       NVARCHAR(MAX) NOT NULL,
	updated_at DATETIMEOFFSET NOT NULL
)`

type MSSQLStore struct {
	db     *sql.DB
	record string
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql store: create table: %w", err)
	}
	return &MSSQLStore{db: db, record: cfg.Record}, nil
}

func (s *MSSQLStore) Close() { _ = s.db.Close() }

func (s *MSSQLStore) Load(ctx context.Context) (store.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM content_records WHERE name = @p1`, s.record).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mssql store: load: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		log.Printf("store/mssql: malformed record %q: %v; discarding", s.record, err)
		return store.Record{}, nil
	}
	if rec == nil {
		rec = store.Record{}
	}
	return rec, nil
}

func (s *MSSQLStore) Save(ctx context.Context, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("mssql store: encode: %w", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE content_records SET data = @p2, updated_at = @p3 WHERE name = @p1`,
		s.record, string(data), now)
	if err != nil {
		return fmt.Errorf("mssql store: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_records (name, data, updated_at) VALUES (@p1, @p2, @p3)`,
		s.record, string(data), now)
	if err != nil {
		return fmt.Errorf("mssql store: insert: %w", err)
	}
	return nil
}
