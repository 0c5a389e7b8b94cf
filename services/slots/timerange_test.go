package slots

import (
	"testing"

	"groundbook/models"
)

func mustRange(t *testing.T, text string, allowWrap bool) models.TimeRange {
	t.Helper()
	r, err := ParseRange(text, allowWrap)
	if err != nil {
		t.Fatalf("ParseRange(%q): %v", text, err)
	}
	return r
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		text      string
		allowWrap bool
		want      models.TimeRange
		wantErr   bool
	}{
		{"17:00-19:00", false, models.TimeRange{Start: 1020, End: 1140}, false},
		{"22:00-00:00", false, models.TimeRange{Start: 1320, End: 1440}, false},
		{"22:00-24:00", false, models.TimeRange{Start: 1320, End: 1440}, false},
		{"00:00-24:00", false, models.TimeRange{Start: 0, End: 1440}, false},
		{"18:00-06:00", true, models.TimeRange{Start: 1080, End: 1800}, false},
		{"18:00-06:00", false, models.TimeRange{}, true},
		{"10:00-10:00", false, models.TimeRange{}, true},
		{"00:00-00:00", true, models.TimeRange{}, true},
		{"24:00-02:00", true, models.TimeRange{}, true},
		{"7:00-9:00", false, models.TimeRange{}, true},
		{"25:00-26:00", false, models.TimeRange{}, true},
		{"10:60-11:00", false, models.TimeRange{}, true},
		{"1000-1100", false, models.TimeRange{}, true},
		{"+9:00-10:00", false, models.TimeRange{}, true},
		{"09:00-+1:00", false, models.TimeRange{}, true},
		{"09:+5-10:00", false, models.TimeRange{}, true},
		{"0x:00-10:00", false, models.TimeRange{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRange(tt.text, tt.allowWrap)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRange(%q) = %v, want error", tt.text, got)
			} else if !models.IsValidation(err) {
				t.Errorf("ParseRange(%q) error %v is not a validation error", tt.text, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRange(%q) unexpected error: %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRange(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestParseClockDigitsOnly(t *testing.T) {
	for _, text := range []string{"+9:00", "-1:00", "09:+5", " 9:00", "9 :00", "09:0 "} {
		if got, err := ParseClock(text); err == nil {
			t.Errorf("ParseClock(%q) = %d, want error", text, got)
		}
	}
	if got, err := ParseClock("09:05"); err != nil || got != 545 {
		t.Errorf("ParseClock(09:05) = %d, %v", got, err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"17:00-19:00", "18:00-20:00", true},
		{"17:00-19:00", "19:00-20:00", false},
		{"17:00-19:00", "16:00-17:00", false},
		{"10:00-14:00", "11:00-12:00", true},
		{"23:00-01:00", "00:00-01:00", true},
		{"23:00-01:00", "01:00-02:00", false},
		{"18:00-06:00", "05:00-07:00", true},
		{"18:00-06:00", "06:00-18:00", false},
		{"22:00-00:00", "00:00-01:00", false},
	}
	for _, tt := range tests {
		a := mustRange(t, tt.a, true)
		b := mustRange(t, tt.b, true)
		if got := Overlaps(a, b); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Overlaps(b, a); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestDurationAndHours(t *testing.T) {
	r := mustRange(t, "17:00-19:00", false)
	if d := Duration(r); d != 2 {
		t.Errorf("Duration = %v, want 2", d)
	}
	hours := Hours(r)
	if len(hours) != 2 || hours[0] != 17 || hours[1] != 18 {
		t.Errorf("Hours = %v, want [17 18]", hours)
	}

	wrap := mustRange(t, "23:00-01:00", true)
	hours = Hours(wrap)
	if len(hours) != 2 || hours[0] != 23 || hours[1] != 0 {
		t.Errorf("Hours(wrap) = %v, want [23 0]", hours)
	}

	half := mustRange(t, "17:30-18:00", false)
	if d := Duration(half); d != 0.5 {
		t.Errorf("Duration = %v, want 0.5", d)
	}
}

func TestRequireWholeHours(t *testing.T) {
	if err := RequireWholeHours(mustRange(t, "17:00-19:00", false)); err != nil {
		t.Errorf("aligned range rejected: %v", err)
	}
	if err := RequireWholeHours(mustRange(t, "17:30-19:00", false)); err == nil {
		t.Error("misaligned range accepted")
	}
}

func TestContains(t *testing.T) {
	night := mustRange(t, "18:00-06:00", true)
	for _, m := range []int{1080, 1439, 0, 359} {
		if !Contains(night, m) {
			t.Errorf("Contains(night, %d) = false", m)
		}
	}
	for _, m := range []int{360, 1079, 720} {
		if Contains(night, m) {
			t.Errorf("Contains(night, %d) = true", m)
		}
	}
}
