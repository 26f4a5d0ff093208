package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// GeoKey is the canonical "city|REGION" form that joins events to contacts.
// Every same-city comparison goes through it, in Go and against the events
// table alike.
type GeoKey string

// NormalizeGeoKey folds case, strips diacritics and collapses whitespace in
// the city, and upper-cases the region, so "  San José " / "ca" and
// "san jose" / "CA" produce the same key.
func NormalizeGeoKey(city, region string) GeoKey {
	return GeoKey(normalizeCity(city) + "|" + NormalizeRegion(region))
}

// NormalizeRegion is the region half of a GeoKey.
func NormalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

func normalizeCity(city string) string {
	// Transformers carry state; build a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	folded, _, err := transform.String(t, city)
	if err != nil {
		folded = strings.ToLower(city)
	}
	return strings.Join(strings.Fields(folded), " ")
}
