// Package formcheck validates raw form submissions before they reach the
// guarded mutation path: rule-driven per-field checks, a dangerous-content
// scan, honeypot detection, and a double-submission guard.
//
// Validation never mutates anything; it returns sanitized copies of the
// passing values and human-readable errors for the rest.
package formcheck

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"pagecms/internal/sanitize"
)

// Kind selects the per-type validation and the sanitizer applied to a
// passing value.
type Kind int

const (
	// KindText: no structural check; sanitized as plain text.
	KindText Kind = iota
	// KindEmail: basic address shape; sanitized as plain text.
	KindEmail
	// KindPhone: digits and phone punctuation only; sanitized as plain text.
	KindPhone
	// KindURL: must parse with a scheme and host; sanitized as plain text.
	KindURL
	// KindHTML: sanitized through the allow-list markup sanitizer.
	KindHTML
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)\.]+$`)
)

// Rule is the validation contract for one field.
type Rule struct {
	Kind      Kind
	Required  bool
	MinLength int
	MaxLength int
	// Default substitutes for an absent optional value.
	Default string
}

// Result carries the sanitized passing values and the accumulated errors.
// A submission is acceptable iff len(Errors) == 0.
type Result struct {
	Sanitized map[string]string
	Errors    []string
}

// Validate checks values against rules field by field.
//
// Behavior:
//   - A required field that is empty (after trimming) is an error.
//   - An absent optional field takes its rule's Default.
//   - Length limits apply to the raw value.
//   - Any value matching a dangerous pattern is rejected outright, whatever
//     its kind.
//   - Passing values are sanitized per kind into Result.Sanitized.
//
// Fields present in values but absent from rules are ignored; the caller
// decides whether unknown fields are an error.
func Validate(values map[string]string, rules map[string]Rule) Result {
	res := Result{Sanitized: make(map[string]string, len(rules))}

	for field, rule := range rules {
		value := values[field]
		trimmed := strings.TrimSpace(value)

		if rule.Required && trimmed == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("field %s is required", field))
			continue
		}
		if trimmed == "" {
			res.Sanitized[field] = rule.Default
			continue
		}

		if rule.MinLength > 0 && len(trimmed) < rule.MinLength {
			res.Errors = append(res.Errors, fmt.Sprintf("field %s must be at least %d characters", field, rule.MinLength))
			continue
		}
		if rule.MaxLength > 0 && len(trimmed) > rule.MaxLength {
			res.Errors = append(res.Errors, fmt.Sprintf("field %s must be at most %d characters", field, rule.MaxLength))
			continue
		}

		if sanitize.Suspicious(trimmed) {
			res.Errors = append(res.Errors, fmt.Sprintf("field %s contains disallowed content", field))
			continue
		}

		switch rule.Kind {
		case KindEmail:
			if !emailPattern.MatchString(trimmed) {
				res.Errors = append(res.Errors, fmt.Sprintf("field %s must be a valid email address", field))
				continue
			}
			res.Sanitized[field] = sanitize.Text(trimmed)

		case KindPhone:
			if !phonePattern.MatchString(trimmed) {
				res.Errors = append(res.Errors, fmt.Sprintf("field %s must be a valid phone number", field))
				continue
			}
			res.Sanitized[field] = sanitize.Text(trimmed)

		case KindURL:
			u, err := url.Parse(trimmed)
			if err != nil || u.Scheme == "" || u.Host == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("field %s must be a valid URL", field))
				continue
			}
			res.Sanitized[field] = sanitize.Text(trimmed)

		case KindHTML:
			res.Sanitized[field] = sanitize.HTML(trimmed)

		default:
			res.Sanitized[field] = sanitize.Text(trimmed)
		}
	}

	return res
}

// Honeypot reports whether the trap field was filled in — the signature of an
// automated submitter. Callers should fail silently on a hit.
func Honeypot(values map[string]string, field string) bool {
	return strings.TrimSpace(values[field]) != ""
}

// SubmitGuard suppresses duplicate submissions: once armed, further attempts
// are rejected until Release or the safety interval elapses.
//
// Concurrency:
//   - Safe for concurrent use.
type SubmitGuard struct {
	mu       sync.Mutex
	armedAt  time.Time
	armed    bool
	interval time.Duration

	// now is injected for deterministic tests. Production uses time.Now.
	now func() time.Time
}

// NewSubmitGuard builds a guard that self-releases after interval (<= 0
// defaults to 10 seconds, matching the original's re-enable timer).
func NewSubmitGuard(interval time.Duration) *SubmitGuard {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &SubmitGuard{interval: interval, now: time.Now}
}

// TryAcquire arms the guard. Returns false while a prior submission is still
// in flight and the safety interval has not elapsed.
func (g *SubmitGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.armed && now.Sub(g.armedAt) < g.interval {
		return false
	}
	g.armed = true
	g.armedAt = now
	return true
}

// Release disarms the guard once the submission completes.
func (g *SubmitGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}
