// Package slots holds the time-range arithmetic shared by availability,
// holds and reservations. Every overlap decision in the engine goes through here.
package slots

import (
	"strconv"
	"strings"

	"groundbook/models"
)

// ParseClock parses "HH:MM" into minutes from midnight. "24:00" is accepted
// and returns MinutesPerDay; callers decide whether that is legal.
func ParseClock(text string) (int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, models.NewValidationError("range", "malformed time %q, expected HH:MM", text)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 24 {
		return 0, models.NewValidationError("range", "invalid hour in %q", text)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, models.NewValidationError("range", "invalid minute in %q", text)
	}
	if hh == 24 && mm != 0 {
		return 0, models.NewValidationError("range", "invalid time %q", text)
	}
	return hh*60 + mm, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// ParseRange parses "HH:MM-HH:MM". An end of 00:00 (or 24:00) after a later
// start means end of day and is not a wrap. Any other end before start is a
// wrap past midnight and is only accepted when allowWrap is set.
func ParseRange(text string, allowWrap bool) (models.TimeRange, error) {
	startText, endText, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return models.TimeRange{}, models.NewValidationError("range", "malformed range %q, expected HH:MM-HH:MM", text)
	}
	start, err := ParseClock(startText)
	if err != nil {
		return models.TimeRange{}, err
	}
	if start == models.MinutesPerDay {
		return models.TimeRange{}, models.NewValidationError("range", "range cannot start at 24:00")
	}
	end, err := ParseClock(endText)
	if err != nil {
		return models.TimeRange{}, err
	}
	if end == 0 && start > 0 {
		end = models.MinutesPerDay
	}
	switch {
	case end == start:
		return models.TimeRange{}, models.NewValidationError("range", "range %q has zero duration", text)
	case end < start:
		if !allowWrap {
			return models.TimeRange{}, models.NewValidationError("range", "range %q crosses midnight", text)
		}
		end += models.MinutesPerDay
	}
	return models.TimeRange{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open ranges share any minute once both are
// placed on a common timeline. Back-to-back ranges do not overlap.
func Overlaps(a, b models.TimeRange) bool {
	return overlap(a, b) || overlap(shift(a), b) || overlap(a, shift(b))
}

func overlap(a, b models.TimeRange) bool {
	return a.Start < b.End && a.End > b.Start
}

func shift(r models.TimeRange) models.TimeRange {
	return models.TimeRange{Start: r.Start + models.MinutesPerDay, End: r.End + models.MinutesPerDay}
}

// Contains reports whether minute m of the day falls inside r.
func Contains(r models.TimeRange, m int) bool {
	m %= models.MinutesPerDay
	return (r.Start <= m && m < r.End) || (r.Start <= m+models.MinutesPerDay && m+models.MinutesPerDay < r.End)
}

// Duration returns the length of r in hours.
func Duration(r models.TimeRange) float64 {
	return float64(r.End-r.Start) / 60
}

// Hours lists the hour buckets (0-23) touched by r.
func Hours(r models.TimeRange) []int {
	var hours []int
	for m := (r.Start / 60) * 60; m < r.End; m += 60 {
		hours = append(hours, (m/60)%24)
	}
	return hours
}

// RequireWholeHours rejects ranges that do not start and end on the hour.
func RequireWholeHours(r models.TimeRange) error {
	if r.Start%60 != 0 || r.End%60 != 0 {
		return models.NewValidationError("range", "range %s must start and end on the hour", r)
	}
	return nil
}

// HourRange returns the atomic slot for hour h.
func HourRange(h int) models.TimeRange {
	return models.TimeRange{Start: h * 60, End: (h + 1) * 60}
}
