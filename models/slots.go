package models

import "fmt"

// MinutesPerDay is the length of the booking day.
const MinutesPerDay = 24 * 60

// TimeRange is a wall-clock window expressed in minutes from midnight.
// A range that wraps past midnight is normalised so that End > MinutesPerDay.
type TimeRange struct {
	Start int `bson:"start" json:"start"` // minutes from midnight (e.g., 1020 for 17:00)
	End   int `bson:"end" json:"end"`     // minutes from midnight, > Start after normalisation
}

// Wraps reports whether the range crosses midnight.
func (r TimeRange) Wraps() bool {
	return r.End > MinutesPerDay
}

// String renders the range as "HH:MM-HH:MM".
func (r TimeRange) String() string {
	return fmt.Sprintf("%s-%s", clock(r.Start), clock(r.End))
}

func clock(minutes int) string {
	if minutes == MinutesPerDay {
		return "24:00"
	}
	m := minutes % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// SlotAvailability is one hourly bucket of a ground's day.
type SlotAvailability struct {
	Range     TimeRange `json:"-"`
	Label     string    `json:"range"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Available bool      `json:"available"`
}

// AvailabilityResponse is the day grid returned to clients.
type AvailabilityResponse struct {
	ResourceID string             `json:"resourceId"`
	Date       string             `json:"date"`
	Slots      []SlotAvailability `json:"slots"`
}
