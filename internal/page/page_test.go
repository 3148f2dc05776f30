package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoaderFromReader(t *testing.T) {
	t.Parallel()

	l := NewLoader(nil, time.Second)
	got, err := l.Load(context.Background(), Input{Reader: strings.NewReader("<p>hi</p>")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "<p>hi</p>" {
		t.Fatalf("Load = %q", got)
	}

	empty, err := l.Load(context.Background(), Input{})
	if err != nil || empty != "" {
		t.Fatalf("Load(empty input) = %q, %v", empty, err)
	}
}

func TestLoaderFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<h1>file</h1>"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := NewLoader(nil, time.Second)
	got, err := l.Load(context.Background(), Input{Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "<h1>file</h1>" {
		t.Fatalf("Load = %q", got)
	}
}

// TestLoaderDecodesLegacyCharset: a Latin-1 response comes back as UTF-8.
func TestLoaderDecodesLegacyCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" with an ISO-8859-1 e-acute.
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), time.Second)
	got, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "café" {
		t.Fatalf("Load = %q, want UTF-8 café", got)
	}
}

func TestLoaderReportsHTTPStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), time.Second)
	_, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("Load error = %v, want status in message", err)
	}
}

const applyPage = `<!DOCTYPE html>
<html><body>
<section data-section="hero">
  <h1 class="editable" data-field="title">Old</h1>
</section>
</body></html>`

func writeApplyFixture(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(applyPage), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// TestApplyDir rewrites every page in the directory with the record's values
// and counts fields that found no target.
func TestApplyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := t.TempDir()
	writeApplyFixture(t, dir, "a.html", "b.html")
	// Non-HTML files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	record := map[string]map[string]string{
		"hero": {"title": "Fresh"},
		"misc": {"orphan": "nowhere"},
	}

	stats, err := ApplyDir(context.Background(), dir, record, ApplyOptions{OutDir: out, Workers: 2})
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if stats.Files != 2 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Applied != 2 {
		t.Fatalf("applied = %d, want one field per file", stats.Applied)
	}
	if stats.Missing != 2 {
		t.Fatalf("missing = %d, want the orphan once per file", stats.Missing)
	}

	for _, name := range []string{"a.html", "b.html"} {
		b, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("read output %s: %v", name, err)
		}
		if !strings.Contains(string(b), "Fresh") {
			t.Fatalf("%s was not rewritten: %s", name, b)
		}
	}
	// Inputs untouched when an out dir is set.
	b, _ := os.ReadFile(filepath.Join(dir, "a.html"))
	if !strings.Contains(string(b), "Old") {
		t.Fatal("source file was rewritten despite OutDir")
	}
}

// TestApplyDirInPlace: with no out dir, pages are rewritten where they live.
func TestApplyDirInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeApplyFixture(t, dir, "index.html")

	record := map[string]map[string]string{"hero": {"title": "Rewritten"}}
	stats, err := ApplyDir(context.Background(), dir, record, ApplyOptions{})
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if stats.Files != 1 || stats.Applied != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	b, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "Rewritten") {
		t.Fatalf("page not rewritten in place: %s", b)
	}
}

func TestApplyDirMissingDir(t *testing.T) {
	t.Parallel()

	_, err := ApplyDir(context.Background(), filepath.Join(t.TempDir(), "absent"), nil, ApplyOptions{})
	if err == nil {
		t.Fatal("missing directory did not error")
	}
}
