package catalog

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s case-folded with accents removed, so "Plús", "PLUS" and a
// decomposed "plús" compare equal. Spreadsheet exports mix NFC and
// NFD text.
func Fold(s string) string {
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
