package model

import (
	"reflect"
	"testing"
)

// TestRoundTrip verifies the persistence contract:
// FromPersisted(ToPersisted(m)) is structurally equal to m.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("hero", "title", "Hello")
	m.Set("hero", "subtitle", "<b>World</b>")
	m.Set("footer", "copyright", "© 2026")
	m.Set(MediaSection, "hero_image", "data:image/png;base64,AAAA")

	got := FromPersisted(m.ToPersisted())
	if !m.Equal(got) {
		t.Fatalf("round-trip mismatch:\n m=%#v\n got=%#v", m.ToPersisted(), got.ToPersisted())
	}
}

// TestToPersistedDetached guards against aliasing: mutating the persisted
// form must not leak back into the model.
func TestToPersistedDetached(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("hero", "title", "A")

	p := m.ToPersisted()
	p["hero"]["title"] = "tampered"

	if m.Get("hero", "title") != "A" {
		t.Fatal("ToPersisted returned an aliased map")
	}
}

// TestMergePrecedence pins the overlay rule: persisted state wins over the
// extracted baseline on key collision, and new keys are added.
func TestMergePrecedence(t *testing.T) {
	t.Parallel()

	baseline := New()
	baseline.Set("hero", "title", "A")
	baseline.Set("hero", "subtitle", "keep")

	persisted := New()
	persisted.Set("hero", "title", "B")
	persisted.Set("footer", "copyright", "new")

	baseline.MergeFrom(persisted)

	if got := baseline.Get("hero", "title"); got != "B" {
		t.Fatalf("title = %q, want %q (persisted wins)", got, "B")
	}
	if got := baseline.Get("hero", "subtitle"); got != "keep" {
		t.Fatalf("subtitle = %q, want untouched baseline value", got)
	}
	if got := baseline.Get("footer", "copyright"); got != "new" {
		t.Fatalf("copyright = %q, want merged-in value", got)
	}
}

// TestBaselineImmutable verifies the baseline is a deep-independent snapshot:
// later Sets do not show through, and the copy handed out is detached.
func TestBaselineImmutable(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("hero", "title", "original")
	m.SnapshotBaseline()

	m.Set("hero", "title", "edited")

	base := m.Baseline()
	if base["hero"]["title"] != "original" {
		t.Fatalf("baseline = %q, want pre-edit value", base["hero"]["title"])
	}

	base["hero"]["title"] = "tampered"
	if m.Baseline()["hero"]["title"] != "original" {
		t.Fatal("Baseline returned an aliased map")
	}
}

func TestHasDistinguishesEmpty(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("hero", "title", "")

	if !m.Has("hero", "title") {
		t.Fatal("Has = false for present empty value")
	}
	if m.Has("hero", "missing") {
		t.Fatal("Has = true for absent field")
	}
	if m.Get("hero", "missing") != "" {
		t.Fatal("Get of absent field should be empty")
	}
}

// TestWalkDeterministic checks the documented sorted visit order.
func TestWalkDeterministic(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("zeta", "b", "1")
	m.Set("zeta", "a", "2")
	m.Set("alpha", "x", "3")

	var order []Address
	m.Walk(func(section, field, _ string) {
		order = append(order, Address{Section: section, Field: field})
	})

	want := []Address{
		{Section: "alpha", Field: "x"},
		{Section: "zeta", Field: "a"},
		{Section: "zeta", Field: "b"},
	}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("Walk order = %v, want %v", order, want)
	}
}
