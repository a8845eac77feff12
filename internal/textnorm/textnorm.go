// Package textnorm holds the pure string functions used to reconcile the
// spreadsheet's labels and categorical values: accent stripping, label
// canonicalization and Brazilian state/region lookups.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newAccentStripper builds a fresh chain per call; transform.Chain keeps
// internal buffers and is not safe for concurrent use.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// StripAccents maps accented Latin letters to their base letter.
// Characters without a combining mark pass through unchanged.
func StripAccents(s string) string {
	out, _, err := transform.String(newAccentStripper(), s)
	if err != nil {
		return s
	}
	return out
}

// CanonicalizeLabel strips accents, upper-cases and joins the words with a
// single underscore. Whitespace, hyphens and underscores all separate words,
// so the function is idempotent:
//
//	CanonicalizeLabel("Preço  médio-revenda") == "PRECO_MEDIO_REVENDA"
func CanonicalizeLabel(s string) string {
	upper := strings.ToUpper(StripAccents(s))
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	return strings.Join(words, "_")
}

// NormalizeName canonicalizes a proper name (city, state) for comparison and
// display: accent-free, upper-case, apostrophes removed, any other
// punctuation turned into a space and runs of spaces collapsed.
//
//	NormalizeName("  São  João d'Aliança ") == "SAO JOAO DALIANCA"
func NormalizeName(s string) string {
	upper := strings.ToUpper(StripAccents(s))
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		switch {
		case r == '\'' || r == '`' || r == '´' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
