package slots

import (
	"time"

	"groundbook/models"
)

// DateLayout is the calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar day in loc, or UTC when loc is nil.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, models.NewValidationError("date", "invalid date %q, expected YYYY-MM-DD", date)
	}
	return d, nil
}

// StartOf returns the absolute instant r begins on date.
func StartOf(date string, r models.TimeRange, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(r.Start) * time.Minute), nil
}
