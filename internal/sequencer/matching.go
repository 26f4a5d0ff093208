package sequencer

import (
	"strings"

	"outreach/internal/types"
)

// GeoKey is the join key between events and contacts.
type GeoKey = types.GeoKey

// NormalizeKey is types.NormalizeGeoKey.
func NormalizeKey(city, region string) GeoKey {
	return types.NormalizeGeoKey(city, region)
}

// MatchingIndex groups contacts by GeoKey.
type MatchingIndex struct {
	byKey map[GeoKey][]types.Contact
}

// NewMatchingIndex indexes active contacts with a usable geography, keeping
// their input order within each key.
func NewMatchingIndex(contacts []types.Contact) *MatchingIndex {
	idx := &MatchingIndex{byKey: make(map[GeoKey][]types.Contact)}
	for _, c := range contacts {
		if !c.IsActive() || strings.TrimSpace(c.City) == "" || strings.TrimSpace(c.Region) == "" {
			continue
		}
		k := NormalizeKey(c.City, c.Region)
		idx.byKey[k] = append(idx.byKey[k], c)
	}
	return idx
}

// Contacts returns the contacts sharing key.
func (m *MatchingIndex) Contacts(key GeoKey) []types.Contact {
	return m.byKey[key]
}

// Keys is the number of distinct geographies.
func (m *MatchingIndex) Keys() int {
	return len(m.byKey)
}

// Filter keeps only events whose geography has at least one contact.
func (m *MatchingIndex) Filter(events []types.Event) []types.Event {
	var out []types.Event
	for _, e := range events {
		if _, ok := m.byKey[NormalizeKey(e.City, e.Region)]; ok {
			out = append(out, e)
		}
	}
	return out
}

// CountByKey tallies events per geography.
func CountByKey(events []types.Event) map[GeoKey]int {
	counts := make(map[GeoKey]int)
	for _, e := range events {
		counts[NormalizeKey(e.City, e.Region)]++
	}
	return counts
}
