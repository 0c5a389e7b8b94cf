package bookingRepo

import (
	"context"
	"errors"
	"time"

	"groundbook/models"
)

// ErrDuplicateCode is returned by InsertIfSlotFree when the generated booking
// code is already in use. The caller regenerates the code and retries.
var ErrDuplicateCode = errors.New("booking code already in use")

// ErrSessionChanged is returned by SetPaymentSession when another checkout
// recorded a session since the caller read the booking.
var ErrSessionChanged = errors.New("payment session changed concurrently")

type BookingRepository interface {
	// InsertIfSlotFree stores b only if no active booking holds any of its
	// slots. It returns models.ErrSlotTaken when the storage-level uniqueness
	// constraint rejects the write.
	InsertIfSlotFree(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// ListOccupying returns bookings for the day that are active or carry a
	// live embedded hold.
	ListOccupying(ctx context.Context, resourceID, date string, now time.Time) ([]models.Booking, error)
	// Transition applies t only if the stored booking still satisfies its
	// preconditions. On a mismatch it returns *models.TransitionError.
	Transition(ctx context.Context, id string, t models.Transition) (*models.Booking, error)
	SetHold(ctx context.Context, id string, hold models.HoldInfo) error
	ClearHold(ctx context.Context, id string) error
	// SetPaymentSession records sess on a pending booking, but only while the
	// stored session is still prevSessionID ("" for none).
	SetPaymentSession(ctx context.Context, id, prevSessionID string, sess models.PaymentSession, at time.Time) error
	ListExpirableUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	ClearExpiredHolds(ctx context.Context, now time.Time) (int64, error)
	// ListRefunding returns bookings whose refund was requested but not yet
	// issued, last touched no later than before.
	ListRefunding(ctx context.Context, before time.Time) ([]models.Booking, error)
	// FindDuplicateGroups groups active bookings by requester, resource, date
	// and range. Only groups with more than one member are returned, each
	// ordered oldest first.
	FindDuplicateGroups(ctx context.Context) ([][]models.Booking, error)
	Delete(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}
