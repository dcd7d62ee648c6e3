// Package qa turns raw test-runner and linter output into structured
// pass/fail/coverage records. Tool output is frequently colourised and its
// summary format shifts between versions, so every parser strips terminal
// escape sequences first and then tries several patterns in priority order.
package qa

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// MaxRawExcerpt bounds the diagnostic excerpt kept on parse results.
const MaxRawExcerpt = 500

// StripANSI removes terminal escape sequences and carriage returns.
func StripANSI(raw string) string {
	clean := ansi.Strip(raw)
	return strings.ReplaceAll(clean, "\r", "")
}

// excerpt returns at most MaxRawExcerpt characters of s.
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxRawExcerpt {
		return s
	}
	return string(runes[:MaxRawExcerpt])
}
