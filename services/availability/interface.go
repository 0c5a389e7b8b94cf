package availability

import (
	"context"

	"groundbook/models"
)

// AvailabilityService answers "which hours of this ground's day are free".
// It never mutates bookings or holds.
type AvailabilityService interface {
	// DayGrid returns the 24 hourly buckets for display. It may be served
	// from cache and must never be used to admit a write.
	DayGrid(ctx context.Context, resourceID, date string) (*models.AvailabilityResponse, error)
	// CheckRange is the authoritative just-in-time check. It returns a
	// *models.ConflictError when any part of the range is occupied.
	CheckRange(ctx context.Context, q RangeQuery) error
	// Invalidate drops any cached grid for the day.
	Invalidate(ctx context.Context, resourceID, date string)
}

// RangeQuery asks whether a range is free, ignoring claims the caller owns.
type RangeQuery struct {
	ResourceID       string
	Date             string
	Range            models.TimeRange
	ExcludeBookingID string
	ExcludeHoldID    string
}
