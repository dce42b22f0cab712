package knowledge

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics, so "Triglicéridos" and "trigliceridos" compare equal.
func Fold(s string) string {
	// Transformers carry state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key returns the canonical reference-table key for a test name:
// lowercase, accent folded, with spaces and hyphens collapsed into
// underscores.
func Key(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(Fold(name)), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}
