package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const extractFixture = `<html><body>
<section data-section="hero">
  <h1 class="editable" data-field="title">Hello <b>there</b></h1>
</section>
<p class="editable" data-field="footer_note">note</p>
</body></html>`

// TestRun_Stdin verifies the stdin happy path. We test via run() (not
// main()) so the test is fast, deterministic, and does not require an
// OS-level subprocess.
func TestRun_Stdin(t *testing.T) {
	t.Parallel()

	stdin := bytes.NewBufferString(extractFixture)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, stdin, &stdout, &stderr, http.DefaultClient)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var got map[string]map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not valid json: %v; out=%s", err, stdout.String())
	}
	if got["hero"]["title"] != "Hello <b>there</b>" {
		t.Fatalf("hero.title = %q", got["hero"]["title"])
	}
	if got["global"]["footer_note"] != "note" {
		t.Fatalf("global.footer_note = %q", got["global"]["footer_note"])
	}
}

func TestRun_Path(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(extractFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-path", path, "-compact"}, bytes.NewBuffer(nil), &stdout, &stderr, http.DefaultClient)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte(`"hero"`)) {
		t.Fatalf("output missing hero section: %s", stdout.String())
	}
}

func TestRun_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(extractFixture))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-url", srv.URL}, bytes.NewBuffer(nil), &stdout, &stderr, srv.Client())
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var got map[string]map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not valid json: %v", err)
	}
	if len(got["hero"]) != 1 {
		t.Fatalf("record = %v", got)
	}
}

// TestRun_UsageErrors: conflicting sources exit with the usage code.
func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-url", "http://x", "-path", "y"}, bytes.NewBuffer(nil), &stdout, &stderr, http.DefaultClient)
	if code != 2 {
		t.Fatalf("run returned %d, want 2", code)
	}
}
