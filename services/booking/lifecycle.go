package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	"groundbook/models"
	"groundbook/services/availability"
	"groundbook/services/events"
	"groundbook/services/payment"
	"groundbook/services/slots"
	"groundbook/utils"

	"go.uber.org/zap"
)

// DefaultUnpaidTimeout is how long a pending booking may wait for payment.
const DefaultUnpaidTimeout = 5 * time.Minute

type DefaultLifecycleService struct {
	Bookings      bookingRepo.BookingRepository
	Availability  availability.AvailabilityService
	Refunds       payment.RefundQueue
	Events        events.Publisher
	Clock         utils.Clock
	Location      *time.Location
	UnpaidTimeout time.Duration
	Logger        *zap.Logger
}

func (s *DefaultLifecycleService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *DefaultLifecycleService) unpaidTimeout() time.Duration {
	if s.UnpaidTimeout <= 0 {
		return DefaultUnpaidTimeout
	}
	return s.UnpaidTimeout
}

// settled invalidates cached availability and announces the change.
func (s *DefaultLifecycleService) settled(ctx context.Context, typ string, b *models.Booking) {
	s.Availability.Invalidate(ctx, b.ResourceID, b.Date)
	s.Events.Publish(ctx, events.FromBooking(typ, b, s.now()))
}

func (s *DefaultLifecycleService) Confirm(ctx context.Context, id string, meta models.Confirmation, pay *models.PaymentInfo) (*models.Booking, error) {
	now := s.now()
	if meta.ConfirmedAt.IsZero() {
		meta.ConfirmedAt = now
	}
	b, err := s.Bookings.Transition(ctx, id, models.Transition{
		From:         []models.BookingStatus{models.StatusPending},
		To:           models.StatusConfirmed,
		Payment:      pay,
		Confirmation: &meta,
		ClearHold:    true,
		At:           now,
	})
	if err != nil {
		var te *models.TransitionError
		if errors.As(err, &te) && te.From == models.StatusConfirmed {
			current, gerr := s.Bookings.GetByID(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			return current, models.ErrAlreadyConfirmed
		}
		return nil, err
	}

	s.Logger.Info("booking confirmed",
		zap.String("bookingId", b.ID),
		zap.String("code", b.Code),
		zap.String("confirmedBy", meta.ConfirmedBy))
	s.settled(ctx, events.BookingConfirmed, b)
	return b, nil
}

func (s *DefaultLifecycleService) Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, float64, error) {
	current, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if current.Status != models.StatusConfirmed {
		return nil, 0, &models.TransitionError{From: current.Status, To: models.StatusCancelled}
	}
	if err := s.ownedBy(current, actor); err != nil {
		return nil, 0, err
	}

	now := s.now()
	start, err := slots.StartOf(current.Date, current.Range, s.Location)
	if err != nil {
		return nil, 0, err
	}
	refund := 0.0
	if current.Payment.Status == models.PaymentStatusCompleted {
		refund = RefundAmount(current.Pricing.Total, start, now)
	}

	t := models.Transition{
		From: []models.BookingStatus{models.StatusConfirmed},
		To:   models.StatusCancelled,
		Cancellation: &models.Cancellation{
			CancelledBy:  actor.Role,
			ActorID:      actor.ID,
			Reason:       reason,
			RefundAmount: refund,
			CancelledAt:  now,
		},
		ClearHold: true,
		At:        now,
	}
	if refund > 0 {
		t.Payment = &models.PaymentInfo{Status: models.PaymentStatusRefunding}
	}
	b, err := s.Bookings.Transition(ctx, id, t)
	if err != nil {
		return nil, 0, err
	}

	s.Logger.Info("booking cancelled",
		zap.String("bookingId", b.ID),
		zap.String("cancelledBy", actor.Role),
		zap.Float64("refund", refund),
		zap.Duration("beforeStart", start.Sub(now)))
	s.settled(ctx, events.BookingCancelled, b)

	if refund > 0 {
		s.requestRefund(ctx, b, refund, reason)
	}
	return b, refund, nil
}

// requestRefund hands the refund to the queue. The cancellation already
// records what is owed, so a queueing failure is logged for follow-up.
func (s *DefaultLifecycleService) requestRefund(ctx context.Context, b *models.Booking, amount float64, reason string) {
	req := models.RefundRequest{
		BookingID:   b.ID,
		BookingCode: b.Code,
		SessionID:   b.Payment.SessionID,
		PaymentID:   b.Payment.PaymentID,
		Amount:      amount,
		Reason:      reason,
		RequestedAt: s.now(),
	}
	if err := s.Refunds.Enqueue(ctx, req); err != nil {
		s.Logger.Error("failed to queue refund", zap.String("bookingId", b.ID), zap.Float64("amount", amount), zap.Error(err))
		return
	}
	s.Events.Publish(ctx, events.FromBooking(events.BookingRefundRequested, b, s.now()))
}

func (s *DefaultLifecycleService) Withdraw(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, error) {
	current, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ownedBy(current, actor); err != nil {
		return nil, err
	}

	now := s.now()
	b, err := s.Bookings.Transition(ctx, id, models.Transition{
		From: []models.BookingStatus{models.StatusPending},
		To:   models.StatusCancelled,
		Cancellation: &models.Cancellation{
			CancelledBy: actor.Role,
			ActorID:     actor.ID,
			Reason:      reason,
			CancelledAt: now,
		},
		ClearHold: true,
		At:        now,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("pending booking withdrawn", zap.String("bookingId", b.ID), zap.String("by", actor.Role), zap.String("reason", reason))
	s.settled(ctx, events.BookingCancelled, b)
	return b, nil
}

func (s *DefaultLifecycleService) Expire(ctx context.Context, id string) (*models.Booking, error) {
	now := s.now()
	cutoff := now.Add(-s.unpaidTimeout())
	b, err := s.Bookings.Transition(ctx, id, models.Transition{
		From:                []models.BookingStatus{models.StatusPending},
		CreatedBefore:       &cutoff,
		PaymentNotCompleted: true,
		To:                  models.StatusCancelled,
		Cancellation: &models.Cancellation{
			CancelledBy: models.ActorSystem,
			Reason:      "payment not received in time",
			CancelledAt: now,
		},
		ClearHold: true,
		At:        now,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("unpaid booking expired", zap.String("bookingId", b.ID), zap.Time("createdAt", b.CreatedAt))
	s.settled(ctx, events.BookingExpired, b)
	return b, nil
}

func (s *DefaultLifecycleService) Complete(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	if actor.Role == models.ActorRequester {
		return nil, models.ErrForbidden
	}
	b, err := s.Bookings.Transition(ctx, id, models.Transition{
		From: []models.BookingStatus{models.StatusConfirmed},
		To:   models.StatusCompleted,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.settled(ctx, events.BookingCompleted, b)
	return b, nil
}

func (s *DefaultLifecycleService) MarkNoShow(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	if actor.Role != models.ActorOperator {
		return nil, models.ErrForbidden
	}
	now := s.now()
	b, err := s.Bookings.Transition(ctx, id, models.Transition{
		From: []models.BookingStatus{models.StatusConfirmed},
		To:   models.StatusNoShow,
		Cancellation: &models.Cancellation{
			CancelledBy: actor.Role,
			ActorID:     actor.ID,
			Reason:      "no show",
			CancelledAt: now,
		},
		At: now,
	})
	if err != nil {
		return nil, err
	}
	s.settled(ctx, events.BookingNoShow, b)
	return b, nil
}

func (s *DefaultLifecycleService) UpdateStatus(ctx context.Context, id string, to models.BookingStatus, actor models.Actor, reason string) (*models.Booking, error) {
	switch to {
	case models.StatusCancelled:
		current, err := s.Bookings.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusPending {
			return s.Withdraw(ctx, id, actor, reason)
		}
		b, _, err := s.Cancel(ctx, id, actor, reason)
		return b, err
	case models.StatusConfirmed:
		if actor.Role != models.ActorOperator {
			return nil, models.ErrForbidden
		}
		return s.Confirm(ctx, id, models.Confirmation{ConfirmedBy: actor.Role}, nil)
	case models.StatusCompleted:
		return s.Complete(ctx, id, actor)
	case models.StatusNoShow:
		return s.MarkNoShow(ctx, id, actor)
	default:
		return nil, models.NewValidationError("status", "cannot move a booking to %q", to)
	}
}

func (s *DefaultLifecycleService) Delete(ctx context.Context, id string, actor models.Actor) error {
	if actor.Role != models.ActorOperator {
		return models.ErrForbidden
	}
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Bookings.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Warn("booking deleted",
		zap.String("bookingId", b.ID),
		zap.String("code", b.Code),
		zap.String("status", string(b.Status)),
		zap.String("operatorId", actor.ID))
	s.Availability.Invalidate(ctx, b.ResourceID, b.Date)
	return nil
}

// ownedBy lets requesters act only on their own bookings.
func (s *DefaultLifecycleService) ownedBy(b *models.Booking, actor models.Actor) error {
	if actor.Role != models.ActorRequester {
		return nil
	}
	if b.RequesterID == nil || *b.RequesterID != actor.ID {
		return models.ErrForbidden
	}
	return nil
}
