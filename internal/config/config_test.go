package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagecms/internal/secsim"
	"pagecms/internal/store"
)

func validConfig() Config {
	return Config{
		Site:  Site{Page: "index.html"},
		Store: store.Config{Kind: "sqlite", DSN: "cms.db", Record: "pagecms_content"},
		Auth:  []secsim.Credential{{Username: "admin", Password: "s3cret"}},
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cms.json")
	doc := `{
  "site": {"page": "index.html", "workers": 2},
  "store": {"kind": "file", "dsn": "content.json", "record": "main"},
  "metrics": {"backend": "datadog", "tags": "env:test"},
  "auth": [{"username": "admin", "password": "pw"}]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Site.Page != "index.html" || c.Site.Workers != 2 {
		t.Fatalf("site = %+v", c.Site)
	}
	if c.Store.Kind != "file" || c.Store.Record != "main" {
		t.Fatalf("store = %+v", c.Store)
	}
	if c.Metrics.Backend != "datadog" {
		t.Fatalf("metrics = %+v", c.Metrics)
	}
	if len(c.Auth) != 1 || c.Auth[0].Username != "admin" {
		t.Fatalf("auth = %+v", c.Auth)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cms.json")
	if err := os.WriteFile(path, []byte(`{"sight": {}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("misspelled key did not error")
	}
}

func TestValidateClean(t *testing.T) {
	t.Parallel()

	if issues := Validate(validConfig()); len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{name: "no_page_source", mutate: func(c *Config) { c.Site.Page = "" }, path: "site"},
		{name: "negative_workers", mutate: func(c *Config) { c.Site.Workers = -1 }, path: "site.workers"},
		{name: "no_store_kind", mutate: func(c *Config) { c.Store.Kind = "" }, path: "store.kind"},
		{name: "no_dsn", mutate: func(c *Config) { c.Store.DSN = "" }, path: "store.dsn"},
		{name: "blank_username", mutate: func(c *Config) { c.Auth[0].Username = " " }, path: "auth[0].username"},
		{name: "blank_password", mutate: func(c *Config) { c.Auth[0].Password = "" }, path: "auth[0].password"},
		{name: "negative_flush", mutate: func(c *Config) { c.Metrics.FlushSeconds = -5 }, path: "metrics.flush_seconds"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			issues := Validate(c)
			if !HasError(issues) {
				t.Fatalf("no error reported: %v", issues)
			}
			found := false
			for _, iss := range issues {
				if iss.Severity == SeverityError && iss.Path == tc.path {
					found = true
				}
			}
			if !found {
				t.Fatalf("no error at %s: %v", tc.path, issues)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Store.Kind = "etcd"
	c.Store.Record = ""
	c.Metrics.Backend = "statsd"
	c.Auth = nil

	issues := Validate(c)
	if HasError(issues) {
		t.Fatalf("unexpected errors: %v", issues)
	}
	wantPaths := []string{"store.kind", "store.record", "metrics.backend", "auth"}
	for _, want := range wantPaths {
		found := false
		for _, iss := range issues {
			if iss.Severity == SeverityWarn && iss.Path == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("no warning at %s: %v", want, issues)
		}
	}
}

func TestValidateMessagesNameTheProblem(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Store.Kind = "etcd"
	issues := Validate(c)
	joined := ""
	for _, iss := range issues {
		joined += iss.Message + "\n"
	}
	if !strings.Contains(joined, "etcd") {
		t.Fatalf("messages do not name the offending value: %q", joined)
	}
}
