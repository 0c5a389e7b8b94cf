package hold

import (
	"context"
	"time"

	"groundbook/models"
)

// HoldService grants short-lived advisory claims on a slot. A hold only
// improves the checkout experience; the booking uniqueness constraint is
// what actually prevents double allocation.
type HoldService interface {
	Acquire(ctx context.Context, req models.HoldRequest) (*models.HoldReceipt, error)
	// Release drops a standalone hold. Releasing an unknown or expired hold
	// succeeds; a requester releasing someone else's hold gets models.ErrNotFound.
	Release(ctx context.Context, holdID string, actor models.Actor) error
	// ReleaseForBooking drops the hold embedded in a booking.
	ReleaseForBooking(ctx context.Context, bookingID string) error
	// Get returns a live standalone hold, or models.ErrExpiredHold.
	Get(ctx context.Context, holdID string) (*models.Hold, error)
	IsExpired(expiresAt time.Time) bool
}

// IsExpired reports whether a hold expiring at expiresAt is expired at now.
// A hold without an expiry is always expired.
func IsExpired(expiresAt, now time.Time) bool {
	return expiresAt.IsZero() || now.After(expiresAt)
}
