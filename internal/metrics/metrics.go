// Package metrics is the thin instrumentation facade the rest of the code
// records against. Callers emit counters and histogram samples by name; the
// configured backend decides what to do with them.
//
// The default backend discards everything, so instrumentation is free to call
// unconditionally. Wire a real backend (see the datadog subpackage) with
// SetBackend at startup.
package metrics

import (
	"sync"
	"time"
)

// Labels attach dimensions to a single observation.
type Labels map[string]string

// Backend receives observations from the facade.
//
// Concurrency:
//   - Implementations must be safe for concurrent use; the facade forwards
//     calls without serializing them.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits anything buffered. Close stops background work and
	// flushes one final time.
	Flush() error
	Close() error
}

// nopBackend drops everything. It is the default so that instrumented code
// never needs a nil check.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

var (
	mu      sync.RWMutex
	current Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend and returns the previous
// one. Passing nil restores the discarding default.
func SetBackend(b Backend) Backend {
	mu.Lock()
	defer mu.Unlock()
	prev := current
	if b == nil {
		b = nopBackend{}
	}
	current = b
	return prev
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := current
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	mu.RLock()
	b := current
	mu.RUnlock()
	b.ObserveHistogram(name, value, labels)
}

// ObserveDuration records the seconds elapsed since start under name.
func ObserveDuration(name string, start time.Time, labels Labels) {
	ObserveHistogram(name, time.Since(start).Seconds(), labels)
}

// Flush forwards to the current backend.
func Flush() error {
	mu.RLock()
	b := current
	mu.RUnlock()
	return b.Flush()
}

// Close closes the current backend and restores the discarding default.
func Close() error {
	mu.Lock()
	b := current
	current = nopBackend{}
	mu.Unlock()
	return b.Close()
}
