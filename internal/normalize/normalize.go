package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Administrative prefix phrases stripped from place names. Geocoders often
// return "Provincia de Lima" where the reference data says "Lima".
var prefixes = []string{
	"provincia de",
	"departamento de",
	"distrito de",
	"region de",
	"municipalidad de",
	"gobierno de",
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key returns the canonical comparison form of a place name: lowercased,
// diacritics stripped, administrative prefixes removed, whitespace collapsed.
// Total over strings and idempotent; empty input yields "".
func Key(name string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(name))
	if err != nil {
		// transform only fails on malformed UTF-8; fall back to the lowercased input.
		folded = strings.ToLower(name)
	}
	folded = strings.Join(strings.Fields(folded), " ")
	// Removing one prefix can join surrounding text into a new prefix
	// occurrence, so strip until the string stops changing. Each pass
	// shortens the string, so this terminates.
	for {
		prev := folded
		for _, p := range prefixes {
			folded = strings.ReplaceAll(folded, p, " ")
		}
		folded = strings.Join(strings.Fields(folded), " ")
		if folded == prev {
			return folded
		}
	}
}
