package slots

import (
	"errors"
	"testing"

	"groundbook/models"
)

func dayNightRates(t *testing.T) []models.RateRange {
	return []models.RateRange{
		{Label: "day", Range: mustRange(t, "06:00-18:00", true), HourlyRate: 500},
		{Label: "floodlights", Range: mustRange(t, "18:00-06:00", true), HourlyRate: 800},
	}
}

func TestPriceFor(t *testing.T) {
	rates := dayNightRates(t)
	tests := []struct {
		rng  string
		want float64
	}{
		{"17:00-19:00", 1300},
		{"06:00-07:00", 500},
		{"05:00-07:00", 1300},
		{"20:00-22:00", 1600},
		{"00:00-24:00", 12*500 + 12*800},
		{"17:30-18:30", 250 + 400},
	}
	for _, tt := range tests {
		got, err := PriceFor(mustRange(t, tt.rng, false), rates)
		if err != nil {
			t.Errorf("PriceFor(%s) error: %v", tt.rng, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PriceFor(%s) = %v, want %v", tt.rng, got, tt.want)
		}
	}
}

func TestPriceForGap(t *testing.T) {
	rates := []models.RateRange{{Range: mustRange(t, "06:00-18:00", false), HourlyRate: 500}}
	_, err := PriceFor(mustRange(t, "17:00-19:00", false), rates)
	if !errors.Is(err, models.ErrRateNotConfigured) {
		t.Fatalf("expected ErrRateNotConfigured, got %v", err)
	}
}

func TestValidateRateRanges(t *testing.T) {
	if err := ValidateRateRanges(dayNightRates(t)); err != nil {
		t.Fatalf("valid tiling rejected: %v", err)
	}

	gap := []models.RateRange{
		{Range: mustRange(t, "06:00-18:00", true), HourlyRate: 500},
		{Range: mustRange(t, "19:00-06:00", true), HourlyRate: 800},
	}
	if err := ValidateRateRanges(gap); !models.IsValidation(err) {
		t.Errorf("gap accepted: %v", err)
	}

	overlapping := []models.RateRange{
		{Range: mustRange(t, "06:00-18:00", true), HourlyRate: 500},
		{Range: mustRange(t, "17:00-06:00", true), HourlyRate: 800},
	}
	if err := ValidateRateRanges(overlapping); !models.IsValidation(err) {
		t.Errorf("overlap accepted: %v", err)
	}

	if err := ValidateRateRanges(nil); !models.IsValidation(err) {
		t.Errorf("empty rates accepted: %v", err)
	}
}
