package booking

import (
	"math"
	"time"
)

// Refund windows measured back from the start of the slot.
const (
	FullRefundWindow = 4 * time.Hour
	HalfRefundWindow = 2 * time.Hour
)

// RefundPercent is the share of the total returned when a confirmed booking
// starting at slotStart is cancelled at now.
func RefundPercent(slotStart, now time.Time) float64 {
	until := slotStart.Sub(now)
	switch {
	case until >= FullRefundWindow:
		return 100
	case until >= HalfRefundWindow:
		return 50
	default:
		return 0
	}
}

// RefundAmount applies RefundPercent to total, rounded to the minor unit.
func RefundAmount(total float64, slotStart, now time.Time) float64 {
	return math.Round(total*RefundPercent(slotStart, now)) / 100
}
