package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips combining marks, e.g. "Nguyễn Văn Tú" -> "Nguyen Van Tu".
// The Vietnamese "đ" is not a combining mark and is mapped explicitly.
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(result)
}

// NormalizePersonName lowercases a student name, drops diacritics and collapses
// dashes and repeated whitespace into single spaces.
func NormalizePersonName(name string) string {
	name = strings.ToLower(RemoveDiacritics(name))
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NameContains reports whether query appears in name after normalization.
// An empty query matches every name.
func NameContains(name, query string) bool {
	q := NormalizePersonName(query)
	if q == "" {
		return true
	}
	return strings.Contains(NormalizePersonName(name), q)
}
