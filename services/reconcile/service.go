package reconcile

import (
	"context"
	"errors"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	holdRepo "groundbook/database/repository/hold"
	"groundbook/models"
	"groundbook/services/availability"
	"groundbook/services/booking"
	"groundbook/services/events"
	"groundbook/services/payment"
	"groundbook/utils"

	"go.uber.org/zap"
)

const duplicateReason = "duplicate booking"

// DefaultRefundRetryAfter is how long a booking may sit in refunding before
// its refund is queued again.
const DefaultRefundRetryAfter = 10 * time.Minute

type DefaultReconcileService struct {
	Bookings      bookingRepo.BookingRepository
	Holds         holdRepo.HoldRepository
	Lifecycle     booking.LifecycleService
	Availability  availability.AvailabilityService
	Refunds       payment.RefundQueue
	Events        events.Publisher
	Clock         utils.Clock
	UnpaidTimeout time.Duration
	// RefundRetryAfter defaults to DefaultRefundRetryAfter.
	RefundRetryAfter time.Duration
	Logger           *zap.Logger
}

func (s *DefaultReconcileService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *DefaultReconcileService) ExpireUnpaid(ctx context.Context) (int, error) {
	timeout := s.UnpaidTimeout
	if timeout <= 0 {
		timeout = booking.DefaultUnpaidTimeout
	}
	candidates, err := s.Bookings.ListExpirableUnpaid(ctx, s.now().Add(-timeout))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, err := s.Lifecycle.Expire(ctx, b.ID)
		var te *models.TransitionError
		switch {
		case err == nil:
			expired++
		case errors.As(err, &te), errors.Is(err, models.ErrNotFound):
			// Paid or cancelled since it was listed.
		default:
			s.Logger.Error("failed to expire booking", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	if expired > 0 {
		s.Logger.Info("expired unpaid bookings", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *DefaultReconcileService) ExpireHolds(ctx context.Context) (int64, error) {
	now := s.now()
	standalone, err := s.Holds.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	embedded, err := s.Bookings.ClearExpiredHolds(ctx, now)
	if err != nil {
		return standalone, err
	}
	if n := standalone + embedded; n > 0 {
		s.Logger.Info("expired holds cleared", zap.Int64("standalone", standalone), zap.Int64("embedded", embedded))
	}
	return standalone + embedded, nil
}

func (s *DefaultReconcileService) RepairDuplicates(ctx context.Context) (*RepairReport, error) {
	groups, err := s.Bookings.FindDuplicateGroups(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Groups: len(groups)}
	for _, group := range groups {
		keep := group[0]
		for i := 1; i < len(group); i++ {
			dup := group[i]
			refunded, err := s.cancelDuplicate(ctx, &dup)
			if err != nil {
				s.Logger.Error("failed to cancel duplicate booking",
					zap.String("bookingId", dup.ID),
					zap.String("keptBookingId", keep.ID),
					zap.Error(err))
				report.Skipped = append(report.Skipped, dup.ID)
				continue
			}
			s.Logger.Warn("duplicate booking cancelled",
				zap.String("bookingId", dup.ID),
				zap.String("code", dup.Code),
				zap.String("keptBookingId", keep.ID),
				zap.String("keptCode", keep.Code),
				zap.String("status", string(dup.Status)),
				zap.Float64("refund", refunded))
			report.Cancelled = append(report.Cancelled, dup.ID)
			if refunded > 0 {
				report.Refunded = append(report.Refunded, dup.ID)
			}
		}
		s.Availability.Invalidate(ctx, keep.ResourceID, keep.Date)
	}
	return report, nil
}

// cancelDuplicate cancels a duplicate in whatever active state it is in. A
// paid duplicate is refunded in full since the requester never chose to cancel.
func (s *DefaultReconcileService) cancelDuplicate(ctx context.Context, b *models.Booking) (float64, error) {
	if b.Status == models.StatusCompleted {
		return 0, &models.TransitionError{From: b.Status, To: models.StatusCancelled}
	}
	now := s.now()
	refund := 0.0
	if b.Payment.Status == models.PaymentStatusCompleted {
		refund = b.Pricing.Total
	}
	t := models.Transition{
		From: []models.BookingStatus{b.Status},
		To:   models.StatusCancelled,
		Cancellation: &models.Cancellation{
			CancelledBy:  models.ActorSystem,
			Reason:       duplicateReason,
			RefundAmount: refund,
			CancelledAt:  now,
		},
		ClearHold: true,
		At:        now,
	}
	if refund > 0 {
		t.Payment = &models.PaymentInfo{Status: models.PaymentStatusRefunding}
	}
	updated, err := s.Bookings.Transition(ctx, b.ID, t)
	if err != nil {
		return 0, err
	}
	s.Events.Publish(ctx, events.FromBooking(events.BookingCancelled, updated, now))

	if refund > 0 {
		err := s.Refunds.Enqueue(ctx, models.RefundRequest{
			BookingID:   updated.ID,
			BookingCode: updated.Code,
			SessionID:   updated.Payment.SessionID,
			PaymentID:   updated.Payment.PaymentID,
			Amount:      refund,
			Reason:      duplicateReason,
			RequestedAt: now,
		})
		if err != nil {
			s.Logger.Error("failed to queue refund", zap.String("bookingId", updated.ID), zap.Error(err))
		}
	}
	return refund, nil
}

func (s *DefaultReconcileService) RedriveRefunds(ctx context.Context) (int, error) {
	after := s.RefundRetryAfter
	if after <= 0 {
		after = DefaultRefundRetryAfter
	}
	stuck, err := s.Bookings.ListRefunding(ctx, s.now().Add(-after))
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, b := range stuck {
		if err := ctx.Err(); err != nil {
			return queued, err
		}
		req := models.RefundRequest{
			BookingID:   b.ID,
			BookingCode: b.Code,
			SessionID:   b.Payment.SessionID,
			PaymentID:   b.Payment.PaymentID,
			RequestedAt: s.now(),
		}
		if b.Cancellation != nil {
			req.Amount = b.Cancellation.RefundAmount
			req.Reason = b.Cancellation.Reason
		}
		if req.Amount <= 0 {
			s.Logger.Warn("refunding booking has no refund amount", zap.String("bookingId", b.ID))
			continue
		}
		if err := s.Refunds.Enqueue(ctx, req); err != nil {
			s.Logger.Error("failed to requeue refund", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		queued++
	}
	if queued > 0 {
		s.Logger.Info("refunds requeued", zap.Int("count", queued))
	}
	return queued, nil
}

func (s *DefaultReconcileService) RefundIssued(ctx context.Context, req models.RefundRequest) error {
	_, err := s.Bookings.Transition(ctx, req.BookingID, models.Transition{
		PaymentIs: models.PaymentStatusRefunding,
		Payment:   &models.PaymentInfo{Status: models.PaymentStatusRefunded},
		At:        s.now(),
	})
	var te *models.TransitionError
	switch {
	case err == nil:
		s.Logger.Info("refund recorded", zap.String("bookingId", req.BookingID), zap.Float64("amount", req.Amount))
		return nil
	case errors.As(err, &te), errors.Is(err, models.ErrNotFound):
		// Already recorded, or the refund was for a booking we never stored.
		return nil
	default:
		return err
	}
}
