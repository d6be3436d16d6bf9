package fees

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Vocabulary holds the keyword tables used to classify fee lines.
// Matching is a case-insensitive substring test.
type Vocabulary struct {
	Tax      []string
	Shipping []string
}

// DefaultVocabulary returns the Spanish/English keywords seen in
// marketplace settlement exports.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Tax:      []string{"Retención", "Percepción", "Impuesto", "IIBB", "IVA", "Sircreb"},
		Shipping: []string{"envío", "shipping", "correo"},
	}
}

// Merge returns v extended with the keywords of other. Duplicates are kept
// out so repeated merges stay idempotent.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	return Vocabulary{
		Tax:      appendUnique(v.Tax, other.Tax),
		Shipping: appendUnique(v.Shipping, other.Shipping),
	}
}

func appendUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, kw := range append(append([]string{}, base...), extra...) {
		key := fold(kw)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}

// fold normalizes text for keyword comparison. Exports sometimes carry
// decomposed accents, so everything is brought to NFC first.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
