package slots

import (
	"fmt"
	"math"

	"groundbook/models"
)

// PriceFor sums, hour by hour, the rate of whichever rate range contains each
// hour of r. A partial hour is charged pro rata. An hour covered by no rate
// range is a configuration error, never a free hour.
func PriceFor(r models.TimeRange, rates []models.RateRange) (float64, error) {
	total := 0.0
	for m := r.Start; m < r.End; {
		next := (m/60 + 1) * 60
		if next > r.End {
			next = r.End
		}
		rate, ok := rateAt(m, rates)
		if !ok {
			return 0, fmt.Errorf("%w %s", models.ErrRateNotConfigured, HourRange((m/60)%24))
		}
		total += rate * float64(next-m) / 60
		m = next
	}
	return math.Round(total*100) / 100, nil
}

func rateAt(m int, rates []models.RateRange) (float64, bool) {
	for _, rr := range rates {
		if Contains(rr.Range, m) {
			return rr.HourlyRate, true
		}
	}
	return 0, false
}

// ValidateRateRanges checks that rate ranges are non-overlapping and tile the
// whole day with no gaps.
func ValidateRateRanges(rates []models.RateRange) error {
	if len(rates) == 0 {
		return models.NewValidationError("rateRanges", "at least one rate range is required")
	}
	covered := 0
	for i, a := range rates {
		if a.Range.End <= a.Range.Start || a.Range.End-a.Range.Start > models.MinutesPerDay {
			return models.NewValidationError("rateRanges", "rate range %d has invalid bounds %s", i, a.Range)
		}
		if a.HourlyRate < 0 {
			return models.NewValidationError("rateRanges", "rate range %d has a negative rate", i)
		}
		for j := i + 1; j < len(rates); j++ {
			if Overlaps(a.Range, rates[j].Range) {
				return models.NewValidationError("rateRanges", "rate ranges %s and %s overlap", a.Range, rates[j].Range)
			}
		}
		covered += a.Range.End - a.Range.Start
	}
	if covered != models.MinutesPerDay {
		return models.NewValidationError("rateRanges", "rate ranges cover %d minutes, want the full day", covered)
	}
	return nil
}
