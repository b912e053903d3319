package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DisplayName trims a name and collapses inner whitespace.
func DisplayName(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// NormalizeName returns the natural key for a display name: NFKC-normalized,
// case-folded and whitespace-collapsed, so "  ADA  Lovelace" and
// "ada lovelace" identify the same member.
func NormalizeName(s string) string {
	s = norm.NFKC.String(DisplayName(s))
	return cases.Fold().String(s)
}
