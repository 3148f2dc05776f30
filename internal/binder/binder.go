// Package binder bridges a content model and a parsed page document.
//
// It owns the addressing scheme (elements carry a "data-field" marker and an
// optional enclosing "data-section" marker, class "editable" opts an element
// into extraction) and the per-target write rules (img → src, video → nested
// source, anything else → inner markup). It performs no sanitization and no
// business logic.
package binder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pagecms/internal/model"
)

const (
	fieldAttr     = "data-field"
	sectionAttr   = "data-section"
	editableClass = "editable"
)

// Binder applies a ContentModel onto a document and extracts one from it.
//
// The address registry is built once at construction: ApplyOne is a map
// lookup, not a document re-scan. The registry stays valid across writes
// because writes only replace an element's attributes or children, never the
// element itself.
//
// Concurrency:
//   - Not safe for concurrent use; a Binder belongs to one editing session.
type Binder struct {
	doc *goquery.Document

	// scoped maps a full address to the first matching element nested under
	// its section marker.
	scoped map[model.Address]*goquery.Selection

	// byField maps a field name to the first element carrying the field
	// marker anywhere in the document; the fallback when no section-scoped
	// target exists.
	byField map[string]*goquery.Selection
}

// New builds a Binder and its address registry for doc.
func New(doc *goquery.Document) *Binder {
	b := &Binder{
		doc:     doc,
		scoped:  make(map[model.Address]*goquery.Selection),
		byField: make(map[string]*goquery.Selection),
	}

	doc.Find("[" + fieldAttr + "]").Each(func(_ int, sel *goquery.Selection) {
		field, ok := sel.Attr(fieldAttr)
		if !ok || field == "" {
			return
		}
		addr := model.Address{Section: sectionOf(sel), Field: field}
		if _, exists := b.scoped[addr]; !exists {
			b.scoped[addr] = sel
		}
		if _, exists := b.byField[field]; !exists {
			b.byField[field] = sel
		}
	})

	return b
}

// sectionOf resolves the nearest section marker on the element or its
// ancestors, defaulting to the global sentinel.
func sectionOf(sel *goquery.Selection) string {
	marker := sel.Closest("[" + sectionAttr + "]")
	if marker.Length() == 0 {
		return model.GlobalSection
	}
	return marker.AttrOr(sectionAttr, model.GlobalSection)
}

// ExtractAll scans every element carrying the editable marker and builds a
// model from its rendered content.
//
// Behavior:
//   - section = nearest ancestor section marker, else "global"
//   - elements without a field marker are skipped
//   - value = serialized inner markup, falling back to plain text when the
//     markup cannot be serialized
func (b *Binder) ExtractAll() *model.ContentModel {
	m := model.New()

	b.doc.Find("." + editableClass).Each(func(_ int, sel *goquery.Selection) {
		field, ok := sel.Attr(fieldAttr)
		if !ok || field == "" {
			return
		}

		value, err := sel.Html()
		if err != nil {
			value = sel.Text()
		}
		m.Set(sectionOf(sel), field, value)
	})

	return m
}

// ApplyAll writes every (section, field, value) of m into the document and
// returns the number of fields applied and the number with no target.
//
// Idempotent: applying the same model twice yields the same rendered state.
// A missing target is a silent per-field skip, never a batch failure.
func (b *Binder) ApplyAll(m *model.ContentModel) (applied, missing int) {
	m.Walk(func(section, field, value string) {
		if b.ApplyOne(section, field, value) {
			applied++
		} else {
			missing++
		}
	})
	return applied, missing
}

// ApplyOne writes one field value into the document, preferring the target
// nested under the matching section marker and falling back to any element
// carrying the field marker. Returns false when no target exists.
func (b *Binder) ApplyOne(section, field, value string) bool {
	sel, ok := b.scoped[model.Address{Section: section, Field: field}]
	if !ok {
		sel, ok = b.byField[field]
	}
	if !ok {
		return false
	}

	switch goquery.NodeName(sel) {
	case "img":
		sel.SetAttr("src", value)
		sel.SetAttr("alt", "Image "+field)
	case "video":
		source := sel.Find("source").First()
		if source.Length() == 0 {
			return false
		}
		source.SetAttr("src", value)
	default:
		sel.SetHtml(value)
	}
	return true
}

// Export serializes the document and appends the model's persisted form as an
// embedded HTML comment, the client-only stand-in for a real template
// re-render.
//
// The payload has "--" sequences re-escaped (valid inside JSON strings) so the
// comment cannot be terminated early by content.
func (b *Binder) Export(m *model.ContentModel) (string, error) {
	page, err := b.doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}

	payload, err := json.MarshalIndent(m.ToPersisted(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize content: %w", err)
	}
	safe := strings.ReplaceAll(string(payload), "--", "-\\u002d")

	var sb strings.Builder
	sb.WriteString(page)
	sb.WriteString("\n<!-- pagecms:content\n")
	sb.WriteString(safe)
	sb.WriteString("\n-->\n")
	return sb.String(), nil
}

// Render serializes the current document state.
func (b *Binder) Render() (string, error) {
	page, err := b.doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return page, nil
}
