// Package config loads and validates the JSON configuration shared by the
// cms commands.
//
// Validation reports issues rather than failing fast: warnings flag settings
// that work but probably are not what the operator meant, errors mark a
// config no run should start with. The caller decides how strict to be.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"pagecms/internal/secsim"
	"pagecms/internal/store"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Site locates the pages being edited.
type Site struct {
	// Page is the path or URL of the page an editing session runs against.
	Page string `json:"page"`

	// PagesDir is a directory of pages for batch content application.
	PagesDir string `json:"pages_dir"`

	// OutDir receives rewritten pages in batch mode. Empty rewrites in
	// place.
	OutDir string `json:"out_dir"`

	// Workers caps concurrent page rewrites in batch mode. 0 means one per
	// CPU.
	Workers int `json:"workers"`
}

// Metrics selects and tunes the metrics backend.
type Metrics struct {
	// Backend is "datadog", "none", or empty (disabled).
	Backend string `json:"backend"`

	// Job overrides the job tag on emitted metrics.
	Job string `json:"job"`

	// Tags are extra backend tags as CSV, e.g. "env:prod,site:main".
	Tags string `json:"tags"`

	// FlushSeconds overrides the periodic flush interval.
	FlushSeconds int `json:"flush_seconds"`
}

// Config is the top-level configuration document.
type Config struct {
	Site    Site                `json:"site"`
	Store   store.Config        `json:"store"`
	Metrics Metrics             `json:"metrics"`
	Auth    []secsim.Credential `json:"auth"`
}

// Load reads and decodes the config file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// knownStoreKinds mirrors the registered persistence backends. Validation
// warns rather than errors on an unknown kind, since backends register
// themselves and a build may carry extras.
var knownStoreKinds = map[string]bool{
	"file":     true,
	"sqlite":   true,
	"postgres": true,
	"mssql":    true,
}

var knownMetricsBackends = map[string]bool{
	"":        true,
	"none":    true,
	"datadog": true,
}

// Validate checks c and returns every issue found. An empty result means the
// config is clean; callers typically refuse to run only on SeverityError.
func Validate(c Config) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarn, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Site.Page) == "" && strings.TrimSpace(c.Site.PagesDir) == "" {
		errf("site", "either page or pages_dir must be set")
	}
	if c.Site.Workers < 0 {
		errf("site.workers", "must be >= 0, got %d", c.Site.Workers)
	}
	if c.Site.OutDir != "" && c.Site.PagesDir == "" {
		warnf("site.out_dir", "set without pages_dir; it only affects batch mode")
	}

	if strings.TrimSpace(c.Store.Kind) == "" {
		errf("store.kind", "must be set")
	} else if !knownStoreKinds[c.Store.Kind] {
		warnf("store.kind", "unknown kind %q; the build must register it", c.Store.Kind)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		errf("store.dsn", "must be set")
	}
	if strings.TrimSpace(c.Store.Record) == "" {
		warnf("store.record", "empty; the default record name %q will be used", store.DefaultRecord)
	}

	if !knownMetricsBackends[c.Metrics.Backend] {
		warnf("metrics.backend", "unknown backend %q; metrics will be disabled", c.Metrics.Backend)
	}
	if c.Metrics.FlushSeconds < 0 {
		errf("metrics.flush_seconds", "must be >= 0, got %d", c.Metrics.FlushSeconds)
	}

	if len(c.Auth) == 0 {
		warnf("auth", "no credentials configured; the session cannot be authorized and edits will be refused")
	}
	for i, cred := range c.Auth {
		if strings.TrimSpace(cred.Username) == "" {
			errf(fmt.Sprintf("auth[%d].username", i), "must be set")
		}
		if cred.Password == "" {
			errf(fmt.Sprintf("auth[%d].password", i), "must be set")
		}
	}

	return issues
}

// HasError reports whether any issue is fatal.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
