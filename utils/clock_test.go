package utils

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now = %v, want %v", c.Now(), start)
	}
	c.Advance(5 * time.Minute)
	if got := c.Now().Sub(start); got != 5*time.Minute {
		t.Fatalf("advanced %v, want 5m", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Set did not move the clock")
	}
}
