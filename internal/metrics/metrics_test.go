package metrics

import (
	"sync"
	"testing"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	flushes  int
	closes   int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		counters: make(map[string]float64),
		samples:  make(map[string][]float64),
	}
}

func (r *recordingBackend) IncCounter(name string, delta float64, _ Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, _ Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[name] = append(r.samples[name], value)
}

func (r *recordingBackend) Flush() error { r.mu.Lock(); defer r.mu.Unlock(); r.flushes++; return nil }
func (r *recordingBackend) Close() error { r.mu.Lock(); defer r.mu.Unlock(); r.closes++; return nil }

// TestFacadeForwarding: observations reach the installed backend, and
// SetBackend(nil) restores the discarding default.
func TestFacadeForwarding(t *testing.T) {
	rec := newRecordingBackend()
	prev := SetBackend(rec)
	defer SetBackend(prev)

	IncCounter("c", 2, Labels{"k": "v"})
	IncCounter("c", 3, nil)
	ObserveHistogram("h", 1.5, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if rec.counters["c"] != 5 {
		t.Fatalf("counter c = %v, want 5", rec.counters["c"])
	}
	if len(rec.samples["h"]) != 1 || rec.samples["h"][0] != 1.5 {
		t.Fatalf("samples h = %v", rec.samples["h"])
	}
	if rec.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", rec.flushes)
	}

	SetBackend(nil)
	IncCounter("c", 10, nil)
	if rec.counters["c"] != 5 {
		t.Fatal("observation reached a replaced backend")
	}
}

// TestCloseRestoresDefault: Close closes the backend and later observations
// are discarded without panicking.
func TestCloseRestoresDefault(t *testing.T) {
	rec := newRecordingBackend()
	prev := SetBackend(rec)
	defer SetBackend(prev)

	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.closes != 1 {
		t.Fatalf("closes = %d, want 1", rec.closes)
	}
	IncCounter("c", 1, nil)
	if rec.counters["c"] != 0 {
		t.Fatal("observation reached a closed backend")
	}
}
