package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var arabicFolds = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ٱ", "ا",
	"ـ", "",
)

// Normalize folds s for answer matching: case, diacritics, alef variants and
// repeated whitespace are ignored.
func Normalize(s string) string {
	// A fresh chain per call; transform.Chain is stateful.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = arabicFolds.Replace(folded)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// SameAnswer reports whether a and b are equal after normalization.
func SameAnswer(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
