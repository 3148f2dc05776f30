// Package model holds the in-memory content state of an editable page: a
// two-level mapping of section → field → sanitized value.
//
// The model itself performs no sanitization and no document I/O. Callers are
// responsible for sanitizing values before Set, and the binder package is
// responsible for moving values between the model and a live document.
package model

import (
	"sort"
)

// GlobalSection is the sentinel section for editable elements with no
// enclosing section marker.
const GlobalSection = "global"

// MediaSection is the reserved section media uploads are recorded under,
// keyed by field name.
const MediaSection = "media"

// Address identifies one logical piece of content: a field within a section.
type Address struct {
	Section string
	Field   string
}

// ContentModel is the mutable section→field→value mapping for one editing
// session, plus an immutable baseline snapshot captured once.
//
// Concurrency:
//   - Not safe for concurrent use. The editing pipeline is single-threaded by
//     design; the one asynchronous producer (media uploads) funnels its
//     completions through the session controller.
type ContentModel struct {
	sections map[string]map[string]string
	baseline map[string]map[string]string
}

// New returns an empty model with no baseline captured.
func New() *ContentModel {
	return &ContentModel{sections: make(map[string]map[string]string)}
}

// FromPersisted reconstructs a model from its persisted form.
//
// Edge cases:
//   - nil input yields an empty model.
//   - The input map is deep-copied; the caller may mutate it afterwards.
func FromPersisted(record map[string]map[string]string) *ContentModel {
	m := New()
	for section, fields := range record {
		for field, value := range fields {
			m.Set(section, field, value)
		}
	}
	return m
}

// Get returns the value at (section, field), or "" when absent.
func (m *ContentModel) Get(section, field string) string {
	return m.sections[section][field]
}

// Has reports whether (section, field) is present, distinguishing an absent
// field from one holding an empty string.
func (m *ContentModel) Has(section, field string) bool {
	_, ok := m.sections[section][field]
	return ok
}

// Set stores value at (section, field), creating the section as needed.
//
// The value MUST already be sanitized; Set stores it verbatim. No history is
// kept beyond the baseline snapshot.
func (m *ContentModel) Set(section, field, value string) {
	fields, ok := m.sections[section]
	if !ok {
		fields = make(map[string]string)
		m.sections[section] = fields
	}
	fields[field] = value
}

// Section returns a copy of one section's fields, or nil when absent.
func (m *ContentModel) Section(section string) map[string]string {
	fields, ok := m.sections[section]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// MergeFrom overlays every (section, field) of other onto m, last writer
// wins. Used to overlay persisted state onto the freshly extracted baseline.
func (m *ContentModel) MergeFrom(other *ContentModel) {
	if other == nil {
		return
	}
	for section, fields := range other.sections {
		for field, value := range fields {
			m.Set(section, field, value)
		}
	}
}

// SnapshotBaseline captures the current state as the immutable baseline.
// Intended to be called exactly once, right after extraction and before any
// persisted overlay or user edit.
func (m *ContentModel) SnapshotBaseline() {
	m.baseline = deepCopy(m.sections)
}

// Baseline returns a copy of the baseline snapshot, or nil if none was
// captured. The returned map is detached; mutating it does not affect the
// stored baseline.
func (m *ContentModel) Baseline() map[string]map[string]string {
	if m.baseline == nil {
		return nil
	}
	return deepCopy(m.baseline)
}

// ToPersisted returns the model's nested-map persisted form. The result is
// detached from the model and round-trips exactly through FromPersisted.
func (m *ContentModel) ToPersisted() map[string]map[string]string {
	return deepCopy(m.sections)
}

// Equal reports structural equality of the mutable state (baselines are not
// compared).
func (m *ContentModel) Equal(other *ContentModel) bool {
	if other == nil {
		return false
	}
	if len(m.sections) != len(other.sections) {
		return false
	}
	for section, fields := range m.sections {
		otherFields, ok := other.sections[section]
		if !ok || len(fields) != len(otherFields) {
			return false
		}
		for field, value := range fields {
			otherValue, ok := otherFields[field]
			if !ok || value != otherValue {
				return false
			}
		}
	}
	return true
}

// Walk visits every (section, field, value) in deterministic order: sections
// sorted, then fields sorted within each section. Deterministic order keeps
// batch application and serialized output stable across runs.
func (m *ContentModel) Walk(fn func(section, field, value string)) {
	sections := make([]string, 0, len(m.sections))
	for s := range m.sections {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, s := range sections {
		fields := make([]string, 0, len(m.sections[s]))
		for f := range m.sections[s] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fn(s, f, m.sections[s][f])
		}
	}
}

// Len returns the total number of fields across all sections.
func (m *ContentModel) Len() int {
	n := 0
	for _, fields := range m.sections {
		n += len(fields)
	}
	return n
}

func deepCopy(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for section, fields := range in {
		cp := make(map[string]string, len(fields))
		for field, value := range fields {
			cp[field] = value
		}
		out[section] = cp
	}
	return out
}
