// Package sanitize cleans user supplied free text before it is stored.
// Markup is kept as typed; renderers escape on output.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// stripControl removes control characters other than line breaks and tabs.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Text sanitizes multi-line free text such as terms, footers and notes.
// Line breaks are kept. Applying Text to its own output is a no-op.
func Text(s string) string {
	return strings.TrimSpace(stripControl(s))
}

// Line sanitizes a single-line value such as a name or address line,
// collapsing runs of whitespace.
func Line(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(stripControl(s), " "))
}
