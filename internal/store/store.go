// Package store persists a content record — the nested section→field→value
// map — as a single named record in a durable backend.
//
// Backends register themselves from init() and are selected by kind, so the
// composition root decides which backends are linked in (see store/all).
package store

import (
	"context"
	"fmt"
	"sync"
)

// DefaultRecord is the record name used when config leaves it empty.
const DefaultRecord = "pagecms_content"

// Record is the persisted shape of a content model: a JSON-serializable
// nested string map, exactly matching the model's structure.
type Record = map[string]map[string]string

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must match a registered backend kind.
//   - DSN interpretation is backend-specific (a file path for "file", a
//     connection string for the database backends).
//   - Record defaults to DefaultRecord when empty.
type Config struct {
	Kind   string `json:"kind"`
	DSN    string `json:"dsn"`
	Record string `json:"record,omitempty"`
}

// Store is the minimal persistence contract the editing pipeline needs:
// load one named record, overwrite it atomically, release resources.
//
// Consistency contract:
//   - Save immediately followed by Load (same process) returns a record
//     structurally equal to what was saved.
//
// Corruption policy:
//   - A missing or malformed persisted record is NOT an error: Load logs,
//     discards, and returns an empty record so the live-document baseline
//     still applies. Only backend I/O failures surface as errors.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Close()
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "file", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Failing
//     fast avoids ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
//
// Errors:
//   - If cfg.Kind is empty or not registered.
//   - Whatever error the backend factory returns.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}
	if cfg.Record == "" {
		cfg.Record = DefaultRecord
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("store: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
