package file

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pagecms/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.json")
	s, err := New(context.Background(), store.Config{Kind: "file", DSN: path, Record: "rec"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// TestSaveLoadRoundTrip is the store consistency contract: a save immediately
// followed by a load returns a structurally equal record.
func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	defer s.Close()

	rec := store.Record{
		"hero":  {"title": "Hello", "subtitle": "<b>sub</b>"},
		"media": {"hero_image": "data:image/png;base64,AAAA"},
	}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round-trip mismatch:\n got=%#v\nwant=%#v", got, rec)
	}
}

// TestLoadMissingFile: an absent record file is empty state, not a failure.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	defer s.Close()

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty record, got %#v", got)
	}
}

// TestLoadMalformed: unparseable persisted data is logged and discarded,
// never an error to the caller.
func TestLoadMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "content.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(context.Background(), store.Config{Kind: "file", DSN: path, Record: "rec"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load should not fail on corrupt data: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty record, got %#v", got)
	}
}

// TestSaveOverwrites: a save fully replaces the prior record, no partial
// merge of old fields.
func TestSaveOverwrites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, store.Record{"hero": {"title": "old", "gone": "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, store.Record{"hero": {"title": "new"}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got["hero"]["title"] != "new" {
		t.Fatalf("title = %q", got["hero"]["title"])
	}
	if _, ok := got["hero"]["gone"]; ok {
		t.Fatal("stale field survived a full overwrite")
	}
}

// TestRecordsShareFile: two named records in one file do not clobber each
// other.
func TestRecordsShareFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "content.json")
	ctx := context.Background()

	a, err := New(ctx, store.Config{Kind: "file", DSN: path, Record: "a"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(ctx, store.Config{Kind: "file", DSN: path, Record: "b"})
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Save(ctx, store.Record{"s": {"f": "from-a"}}); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, store.Record{"s": {"f": "from-b"}}); err != nil {
		t.Fatal(err)
	}

	gotA, err := a.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if gotA["s"]["f"] != "from-a" {
		t.Fatalf("record a = %q, clobbered by record b", gotA["s"]["f"])
	}
}
