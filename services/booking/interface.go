package booking

import (
	"context"

	"groundbook/models"
)

// LifecycleService is the booking state machine. Every transition is a
// single conditional write; a transition whose precondition no longer holds
// returns *models.TransitionError and changes nothing.
type LifecycleService interface {
	// Confirm moves pending to confirmed. A booking that is already confirmed
	// yields models.ErrAlreadyConfirmed together with the stored booking.
	Confirm(ctx context.Context, id string, meta models.Confirmation, payment *models.PaymentInfo) (*models.Booking, error)
	// Cancel moves confirmed to cancelled and returns the refund owed.
	Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, float64, error)
	// Withdraw abandons a pending booking. Nothing has been paid, so nothing is refunded.
	Withdraw(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, error)
	// Expire cancels a pending booking whose payment never completed within the unpaid timeout.
	Expire(ctx context.Context, id string) (*models.Booking, error)
	Complete(ctx context.Context, id string, actor models.Actor) (*models.Booking, error)
	MarkNoShow(ctx context.Context, id string, actor models.Actor) (*models.Booking, error)
	// UpdateStatus dispatches a requested target status to the matching transition.
	UpdateStatus(ctx context.Context, id string, to models.BookingStatus, actor models.Actor, reason string) (*models.Booking, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
}

// ReservationService creates bookings. It is the only writer of new
// booking rows.
type ReservationService interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
}

// PaymentService ties gateway sessions to bookings.
type PaymentService interface {
	StartCheckout(ctx context.Context, bookingID string, actor models.Actor) (*models.PaymentSession, error)
	// VerifyCheckout asks the gateway about the booking's session and reconciles the result.
	VerifyCheckout(ctx context.Context, bookingID string, actor models.Actor) (*models.ReconcileResult, error)
	OnPaymentVerified(ctx context.Context, bookingID string, v models.PaymentVerification) (*models.ReconcileResult, error)
}
