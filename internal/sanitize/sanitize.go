// Package sanitize turns untrusted text and markup into values that are safe
// to merge into a content model and write back into a page.
//
// Two complementary strategies are used:
//   - Text is denylist-based: escape everything, then strip known-dangerous
//     patterns. Suitable for plain-text contexts.
//   - HTML is allow-list-based: parse the markup and rebuild it keeping only a
//     fixed set of inline formatting tags. Suitable for rich-text contexts and
//     the stronger guarantee of the two.
//
// All functions are pure, deterministic, and total: bad input degrades to an
// empty string, never an error.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxTextLen caps the length of any sanitized text value, in runes.
const MaxTextLen = 10000

// dangerousPatterns are stripped from plain-text values after escaping.
// The escape pass already neutralizes angle brackets, so the tag-pair patterns
// mainly defend values that reach Text through a path that re-decodes
// entities; the URI and handler patterns match regardless of escaping.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b.*?</script\s*>`),
	regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`),
	regexp.MustCompile(`(?is)<object\b.*?</object\s*>`),
	regexp.MustCompile(`(?is)<embed\b.*?</embed\s*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// escaper entity-escapes the five HTML metacharacters plus the path
// separator. The replacer scans left to right and never rescans its own
// output, so "&" is safe to list first.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// allowedTags is the fixed allow-list for HTML. Attributes are never kept.
var allowedTags = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.I:      true,
	atom.Em:     true,
	atom.U:      true,
	atom.Br:     true,
	atom.P:      true,
}

// stripPolicy reduces arbitrary markup to its text content.
var stripPolicy = bluemonday.StrictPolicy()

// Text sanitizes a plain-text value.
//
// Pipeline: truncate to MaxTextLen runes, entity-escape, strip dangerous
// patterns, trim surrounding whitespace.
//
// Edge cases:
//   - Empty input yields empty output.
//   - Output never contains a literal "<" or ">".
func Text(input string) string {
	if input == "" {
		return ""
	}

	runes := []rune(input)
	if len(runes) > MaxTextLen {
		input = string(runes[:MaxTextLen])
	}

	input = escaper.Replace(input)

	for _, pat := range dangerousPatterns {
		input = pat.ReplaceAllString(input, "")
	}

	return strings.TrimSpace(input)
}

// HTML sanitizes a rich-text value.
//
// The input is parsed as a body fragment and rebuilt keeping only the
// allow-listed inline formatting tags (b, strong, i, em, u, br, p), with all
// attributes dropped. A non-allow-listed element is replaced by its children,
// recursively, so disallowed tags disappear but their text survives.
//
// Text nodes are entity-escaped on output. The source this behavior was
// modeled on concatenated raw text content; escaping here keeps HTML
// consistent with Text and guarantees the output re-parses to the same tree.
//
// Edge cases:
//   - Unparseable input yields empty output (the parser is extremely
//     permissive, so this is effectively unreachable).
//   - Output is trimmed.
func HTML(input string) string {
	if input == "" {
		return ""
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(input), body)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for _, n := range nodes {
		rebuild(&sb, n)
	}
	return strings.TrimSpace(sb.String())
}

// rebuild writes the sanitized form of n and its subtree to sb.
func rebuild(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))

	case html.ElementNode:
		if allowedTags[n.DataAtom] {
			if n.DataAtom == atom.Br {
				// Void element: no children, no end tag.
				sb.WriteString("<br>")
				return
			}
			sb.WriteString("<")
			sb.WriteString(n.Data)
			sb.WriteString(">")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				rebuild(sb, c)
			}
			sb.WriteString("</")
			sb.WriteString(n.Data)
			sb.WriteString(">")
			return
		}
		// Disallowed element: drop the tag, keep the children.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rebuild(sb, c)
		}
	}
	// Comments, doctypes and anything else are dropped entirely.
}

// StripTags reduces markup to plain text, dropping every tag and attribute.
//
// When to use:
//   - Presenting a rich value in a context that cannot render markup
//     (single-line form inputs, notification text).
func StripTags(input string) string {
	return strings.TrimSpace(stripPolicy.Sanitize(input))
}

// Suspicious reports whether input matches any known-dangerous pattern
// (script/iframe/object/embed tags, javascript:/vbscript: URIs, inline event
// handlers). Used by form validation and upload scanning, where a match is a
// rejection rather than something to silently strip.
func Suspicious(input string) bool {
	for _, pat := range dangerousPatterns {
		if pat.MatchString(input) {
			return true
		}
	}
	return false
}
