// Package intent implements the deterministic fast path in front of the
// conversational engine. It recognizes "cancel" and "running late" messages
// from free text so the common cases never spend an LLM call.
package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// turkishLower applies Turkish case folding, so "İ" maps to "i" and "I" to "ı"
// (the latter is folded to plain "i" afterwards). Customers mix accented and
// unaccented spellings freely; matching happens on the folded form.
var turkishLower = cases.Lower(language.Turkish)

// deaccent strips combining marks after NFD decomposition, turning "ş" into
// "s", "ğ" into "g", "ü" into "u" and so on.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldTable handles letters that survive decomposition, most importantly the
// Turkish dotless i which is a standalone letter rather than i + mark.
var foldTable = strings.NewReplacer(
	"ı", "i",
	"æ", "ae",
	"ø", "o",
	"ß", "ss",
)

// Normalize lowercases text with Turkish case rules, folds diacritics to
// their base Latin letters, and trims surrounding whitespace. The result is
// what the pattern tables in this package match against.
func Normalize(text string) string {
	s := turkishLower.String(text)
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	s = foldTable.Replace(s)
	return strings.TrimSpace(s)
}
