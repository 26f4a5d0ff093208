package types

import "time"

// EventQuery selects recent events across all geographies.
type EventQuery struct {
	Since        time.Time
	ExcludeTypes []string
	Limit        int
}

// CityEventQuery selects recent events in one city. ExcludeEventID drops the
// event a sequence was created from so follow-ups only show fresh activity.
type CityEventQuery struct {
	City           string
	Region         string
	Since          time.Time
	ExcludeEventID string
	ExcludeTypes   []string
	Limit          int
}
