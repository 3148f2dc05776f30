package store

import (
	"context"
	"testing"
)

// fakeStore is a minimal Store used to exercise the registry.
type fakeStore struct{}

func (fakeStore) Load(context.Context) (Record, error) { return Record{}, nil }
func (fakeStore) Save(context.Context, Record) error   { return nil }
func (fakeStore) Close()                               {}

// TestRegistry covers the factory lookup paths: registered kind, unknown
// kind, missing kind, and the record-name default.
func TestRegistry(t *testing.T) {
	var gotCfg Config
	Register("fake", func(_ context.Context, cfg Config) (Store, error) {
		gotCfg = cfg
		return fakeStore{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: "fake", DSN: "x"}); err != nil {
		t.Fatalf("New(fake): %v", err)
	}
	if gotCfg.Record != DefaultRecord {
		t.Fatalf("record default = %q, want %q", gotCfg.Record, DefaultRecord)
	}

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatal("New(unknown kind) should fail")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("New(empty kind) should fail")
	}
}

// TestRegisterPanics: duplicate and invalid registrations fail fast.
func TestRegisterPanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	Register("dup", func(_ context.Context, _ Config) (Store, error) { return fakeStore{}, nil })
	mustPanic("duplicate kind", func() {
		Register("dup", func(_ context.Context, _ Config) (Store, error) { return fakeStore{}, nil })
	})
	mustPanic("empty kind", func() { Register("", nil) })
	mustPanic("nil factory", func() { Register("nilf", nil) })
}
