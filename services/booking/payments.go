package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	"groundbook/models"
	"groundbook/services/events"
	holdsvc "groundbook/services/hold"
	"groundbook/services/payment"
	"groundbook/services/slots"
	"groundbook/utils"

	"go.uber.org/zap"
)

const (
	msgConfirmed        = "booking confirmed"
	msgAlreadyConfirmed = "booking was already confirmed"
	msgRefunding        = "that time was taken before your payment arrived; your payment is being refunded"
	msgPaymentFailed    = "payment failed"
	msgPaymentPending   = "payment has not completed yet"
	msgCancelled        = "booking was cancelled; any refund follows the cancellation policy"
	lostSlotReason      = "lost to concurrent allocation"
)

type DefaultPaymentService struct {
	Bookings        bookingRepo.BookingRepository
	Lifecycle       LifecycleService
	Gateway         payment.Gateway
	Holds           holdsvc.HoldService
	Refunds         payment.RefundQueue
	Events          events.Publisher
	Clock           utils.Clock
	CancelOnFailure bool
	Logger          *zap.Logger
}

func (s *DefaultPaymentService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// VisibleTo reports whether actor may see b. Requesters only see their own
// bookings; operators and the system see all of them.
func VisibleTo(b *models.Booking, actor models.Actor) bool {
	if actor.Role != models.ActorRequester {
		return true
	}
	return b.RequesterID != nil && *b.RequesterID == actor.ID
}

// StartCheckout opens a gateway session for a pending booking. At most one
// payable session exists per booking: a session still pending at the gateway
// is handed out again instead of opening another.
func (s *DefaultPaymentService) StartCheckout(ctx context.Context, bookingID string, actor models.Actor) (*models.PaymentSession, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(b, actor) {
		return nil, models.ErrNotFound
	}
	if b.Status != models.StatusPending {
		return nil, &models.TransitionError{From: b.Status, To: models.StatusConfirmed}
	}

	if b.Payment.SessionID != "" {
		v, err := s.Gateway.Verify(ctx, b.Payment.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify payment session: %w", err)
		}
		switch v.Outcome {
		case models.OutcomePending:
			s.refreshHold(ctx, b.ID)
			return &models.PaymentSession{SessionID: b.Payment.SessionID, URL: b.Payment.CheckoutURL}, nil
		case models.OutcomePaid:
			res, err := s.OnPaymentVerified(ctx, b.ID, *v)
			if err != nil {
				return nil, err
			}
			return nil, &models.TransitionError{From: res.Booking.Status, To: models.StatusConfirmed}
		}
	}

	sess, err := s.Gateway.CreateSession(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}
	err = s.Bookings.SetPaymentSession(ctx, b.ID, b.Payment.SessionID, *sess, s.now())
	if errors.Is(err, bookingRepo.ErrSessionChanged) {
		// A concurrent checkout recorded its session first. Ours is never
		// handed out, so only the recorded one can be paid.
		current, gerr := s.Bookings.GetByID(ctx, b.ID)
		if gerr != nil {
			return nil, gerr
		}
		s.Logger.Info("concurrent checkout; reusing recorded session",
			zap.String("bookingId", b.ID),
			zap.String("sessionId", current.Payment.SessionID),
			zap.String("discardedSessionId", sess.SessionID))
		return &models.PaymentSession{SessionID: current.Payment.SessionID, URL: current.Payment.CheckoutURL}, nil
	}
	if err != nil {
		return nil, err
	}
	s.refreshHold(ctx, b.ID)
	return sess, nil
}

func (s *DefaultPaymentService) refreshHold(ctx context.Context, bookingID string) {
	if s.Holds == nil {
		return
	}
	if _, err := s.Holds.Acquire(ctx, models.HoldRequest{BookingID: bookingID}); err != nil {
		s.Logger.Warn("failed to refresh hold for checkout", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

func (s *DefaultPaymentService) VerifyCheckout(ctx context.Context, bookingID string, actor models.Actor) (*models.ReconcileResult, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(b, actor) {
		return nil, models.ErrNotFound
	}
	if b.Payment.SessionID == "" {
		return nil, models.NewValidationError("bookingId", "booking %s has no payment session", bookingID)
	}
	v, err := s.Gateway.Verify(ctx, b.Payment.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment session: %w", err)
	}
	return s.OnPaymentVerified(ctx, bookingID, *v)
}

// OnPaymentVerified folds a gateway result into the booking. It is safe to
// call repeatedly with the same verification. A payment that lands after the
// slot was lost never reclaims the slot; it is refunded instead.
func (s *DefaultPaymentService) OnPaymentVerified(ctx context.Context, bookingID string, v models.PaymentVerification) (*models.ReconcileResult, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) && v.Outcome == models.OutcomePaid {
			s.Logger.Warn("payment received for unknown booking", zap.String("bookingId", bookingID), zap.String("sessionId", v.SessionID))
			s.enqueueRefund(ctx, models.RefundRequest{
				BookingID:   bookingID,
				SessionID:   v.SessionID,
				PaymentID:   v.PaymentID,
				Amount:      v.Amount,
				Reason:      "booking not found",
				RequestedAt: s.now(),
			})
			return &models.ReconcileResult{RequiresRefund: true, RefundAmount: v.Amount, Message: msgRefunding}, nil
		}
		return nil, err
	}

	switch v.Outcome {
	case models.OutcomePaid:
		return s.paid(ctx, b, v)
	case models.OutcomeFailed:
		return s.failed(ctx, b, v)
	default:
		return &models.ReconcileResult{Booking: b, Message: msgPaymentPending}, nil
	}
}

func (s *DefaultPaymentService) paid(ctx context.Context, b *models.Booking, v models.PaymentVerification) (*models.ReconcileResult, error) {
	switch b.Status {
	case models.StatusConfirmed, models.StatusCompleted, models.StatusNoShow:
		return &models.ReconcileResult{Booking: b, Confirmed: true, AlreadyConfirmed: true, Message: msgAlreadyConfirmed}, nil
	case models.StatusPending:
		if v.Amount > 0 && v.Amount != b.Pricing.Total {
			s.Logger.Warn("paid amount differs from booking total",
				zap.String("bookingId", b.ID),
				zap.Float64("paid", v.Amount),
				zap.Float64("total", b.Pricing.Total))
		}
		taken, err := s.overlapped(ctx, b)
		if err != nil {
			return nil, err
		}
		if !taken {
			return s.confirm(ctx, b, v)
		}
		return s.lost(ctx, b, v)
	}

	// Cancelled. A payment already recorded on the booking was settled by
	// that cancellation and its refund policy.
	if paymentRecorded(b, v) {
		return settledResult(b), nil
	}
	return s.lost(ctx, b, v)
}

// paymentRecorded reports whether v is the payment the booking already holds.
func paymentRecorded(b *models.Booking, v models.PaymentVerification) bool {
	switch b.Payment.Status {
	case models.PaymentStatusCompleted, models.PaymentStatusRefunding, models.PaymentStatusRefunded:
	default:
		return false
	}
	return v.PaymentID == "" || b.Payment.PaymentID == "" || v.PaymentID == b.Payment.PaymentID
}

func settledResult(b *models.Booking) *models.ReconcileResult {
	res := &models.ReconcileResult{Booking: b, Message: msgCancelled}
	if b.Cancellation == nil {
		return res
	}
	res.RefundAmount = b.Cancellation.RefundAmount
	if b.Cancellation.Reason == lostSlotReason {
		res.RequiresRefund = true
		res.Message = msgRefunding
	}
	return res
}

func (s *DefaultPaymentService) confirm(ctx context.Context, b *models.Booking, v models.PaymentVerification) (*models.ReconcileResult, error) {
	paidAt := s.now()
	confirmed, err := s.Lifecycle.Confirm(ctx, b.ID,
		models.Confirmation{ConfirmedBy: models.ActorSystem, SessionID: v.SessionID, ConfirmedAt: paidAt},
		&models.PaymentInfo{Status: models.PaymentStatusCompleted, SessionID: v.SessionID, PaymentID: v.PaymentID, PaidAt: &paidAt})
	switch {
	case errors.Is(err, models.ErrAlreadyConfirmed):
		return &models.ReconcileResult{Booking: confirmed, Confirmed: true, AlreadyConfirmed: true, Message: msgAlreadyConfirmed}, nil
	case err != nil:
		var te *models.TransitionError
		if errors.As(err, &te) {
			// Expired or cancelled between the read and the write.
			current, gerr := s.Bookings.GetByID(ctx, b.ID)
			if gerr != nil {
				return nil, gerr
			}
			if current.Status == models.StatusPending {
				return s.lost(ctx, current, v)
			}
			return s.paid(ctx, current, v)
		}
		return nil, err
	}
	return &models.ReconcileResult{Booking: confirmed, Confirmed: true, Message: msgConfirmed}, nil
}

// overlapped reports whether another active booking covers any part of b.
func (s *DefaultPaymentService) overlapped(ctx context.Context, b *models.Booking) (bool, error) {
	others, err := s.Bookings.ListOccupying(ctx, b.ResourceID, b.Date, s.now())
	if err != nil {
		return false, err
	}
	for i := range others {
		o := &others[i]
		if o.ID == b.ID || !o.Active {
			continue
		}
		if slots.Overlaps(o.Range, b.Range) {
			s.Logger.Warn("paid booking overlaps another active booking",
				zap.String("bookingId", b.ID),
				zap.String("otherBookingId", o.ID))
			return true, nil
		}
	}
	return false, nil
}

// lost records the payment against a booking that no longer owns its slot
// and queues a full refund.
func (s *DefaultPaymentService) lost(ctx context.Context, b *models.Booking, v models.PaymentVerification) (*models.ReconcileResult, error) {
	amount := v.Amount
	if amount <= 0 {
		amount = b.Pricing.Total
	}
	now := s.now()
	c := models.Cancellation{
		CancelledBy:  models.ActorSystem,
		Reason:       lostSlotReason,
		RefundAmount: amount,
		CancelledAt:  now,
	}
	if b.Cancellation != nil && b.Status != models.StatusPending {
		// Keep who ended the booking and when; the payment is what is refunded now.
		c.CancelledBy = b.Cancellation.CancelledBy
		c.ActorID = b.Cancellation.ActorID
		c.CancelledAt = b.Cancellation.CancelledAt
	}
	t := models.Transition{
		From:         []models.BookingStatus{b.Status},
		Payment:      &models.PaymentInfo{Status: models.PaymentStatusRefunding, SessionID: v.SessionID, PaymentID: v.PaymentID, PaidAt: &now},
		Cancellation: &c,
		At:           now,
	}
	if b.Status == models.StatusPending {
		t.To = models.StatusCancelled
		t.ClearHold = true
	}
	updated, err := s.Bookings.Transition(ctx, b.ID, t)
	if err != nil {
		return nil, err
	}

	s.Logger.Warn("payment arrived after slot was lost",
		zap.String("bookingId", b.ID),
		zap.Error(&models.PaymentMismatchError{BookingID: b.ID}),
		zap.Float64("amount", amount))
	s.enqueueRefund(ctx, models.RefundRequest{
		BookingID:   updated.ID,
		BookingCode: updated.Code,
		SessionID:   v.SessionID,
		PaymentID:   v.PaymentID,
		Amount:      amount,
		Reason:      lostSlotReason,
		RequestedAt: now,
	})
	s.Events.Publish(ctx, events.FromBooking(events.BookingRefundRequested, updated, now))
	return &models.ReconcileResult{Booking: updated, RequiresRefund: true, RefundAmount: amount, Message: msgRefunding}, nil
}

func (s *DefaultPaymentService) failed(ctx context.Context, b *models.Booking, v models.PaymentVerification) (*models.ReconcileResult, error) {
	if b.Status != models.StatusPending {
		return &models.ReconcileResult{Booking: b, Message: msgPaymentFailed}, nil
	}
	updated, err := s.Bookings.Transition(ctx, b.ID, models.Transition{
		From:                []models.BookingStatus{models.StatusPending},
		PaymentNotCompleted: true,
		Payment:             &models.PaymentInfo{Status: models.PaymentStatusFailed, SessionID: v.SessionID},
		At:                  s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("payment failed", zap.String("bookingId", b.ID), zap.String("sessionId", v.SessionID))

	if s.CancelOnFailure {
		updated, err = s.Lifecycle.Withdraw(ctx, b.ID, models.SystemActor, msgPaymentFailed)
		if err != nil {
			return nil, err
		}
	}
	return &models.ReconcileResult{Booking: updated, Message: msgPaymentFailed}, nil
}

func (s *DefaultPaymentService) enqueueRefund(ctx context.Context, req models.RefundRequest) {
	if req.Amount <= 0 {
		return
	}
	if err := s.Refunds.Enqueue(ctx, req); err != nil {
		s.Logger.Error("failed to queue refund", zap.String("bookingId", req.BookingID), zap.Float64("amount", req.Amount), zap.Error(err))
	}
}
