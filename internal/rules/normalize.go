// Package rules implements the static rule tables and the keyword matchers
// that drive the dialogue engine: intent detection, need classification,
// FAQ/objection lookup, and combo/product name search.
package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks,
// so "huyết áp" and "huyet ap" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics, and trims surrounding space.
// It is pure and total: empty input yields the empty string, and applying it
// twice yields the same result as applying it once.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	// Vietnamese đ/Đ is a base letter, not a combining mark, so NFD leaves it alone.
	out = strings.NewReplacer("đ", "d", "Đ", "d").Replace(out)
	return strings.TrimSpace(strings.ToLower(out))
}

// tokenize splits a normalized query into whitespace-separated tokens.
func tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}
