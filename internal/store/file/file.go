// Package file implements store.Store on a single JSON file, the closest
// analog to the browser-local storage the original design persisted into.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"pagecms/internal/store"
)

func init() {
	store.Register("file", New)
}

// FileStore persists the content record as pretty-printed JSON at a fixed
// path. The record name keys the top level of the file, so several named
// records can share one file without clobbering each other.
type FileStore struct {
	path   string
	record string
}

func New(_ context.Context, cfg store.Config) (store.Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("file store: missing path (dsn)")
	}
	return &FileStore{path: cfg.DSN, record: cfg.Record}, nil
}

func (s *FileStore) Close() {}

// Load reads the named record.
//
// Corruption policy (per the store contract): a missing file, unparseable
// JSON, or an absent record name all degrade to an empty record with a log
// line, never an error.
func (s *FileStore) Load(_ context.Context) (store.Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store/file: read %s: %v; treating as empty", s.path, err)
		}
		return store.Record{}, nil
	}

	var all map[string]store.Record
	if err := json.Unmarshal(b, &all); err != nil {
		log.Printf("store/file: malformed record file %s: %v; discarding", s.path, err)
		return store.Record{}, nil
	}

	rec, ok := all[s.record]
	if !ok || rec == nil {
		return store.Record{}, nil
	}
	return rec, nil
}

// Save overwrites the named record, preserving any other records in the
// file. The write is atomic: temp file in the same directory, then rename.
func (s *FileStore) Save(_ context.Context, rec store.Record) error {
	all := map[string]store.Record{}
	if b, err := os.ReadFile(s.path); err == nil {
		// A malformed existing file is discarded rather than blocking the save.
		if err := json.Unmarshal(b, &all); err != nil {
			log.Printf("store/file: malformed record file %s: %v; overwriting", s.path, err)
			all = map[string]store.Record{}
		}
	}
	all[s.record] = rec

	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pagecms-*.json")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}
