package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// FoldKey returns the key used for case-insensitive name lookups.
// Input is trimmed, NFC-normalized and upper-cased so that "criança" and "CRIANÇA"
// (composed or decomposed) resolve to the same entry.
func FoldKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers keep internal state and must not be shared across goroutines
	return cases.Upper(language.Und).String(norm.NFC.String(s))
}

// isDigits reports whether s is non-empty and made only of ASCII digits
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// padCode left-pads s with zeros to width. Longer codes are returned whole.
func padCode(s string, width int) string {
	s = strings.TrimSpace(s)
	if len(s) < width {
		return strings.Repeat("0", width-len(s)) + s
	}
	return s
}
