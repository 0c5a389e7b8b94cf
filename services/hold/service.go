package hold

import (
	"context"
	"errors"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	groundRepo "groundbook/database/repository/ground"
	holdRepo "groundbook/database/repository/hold"
	"groundbook/models"
	"groundbook/services/availability"
	"groundbook/services/slots"
	"groundbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long a hold blocks its slot when no TTL is configured.
const DefaultTTL = 5 * time.Minute

type DefaultHoldService struct {
	Bookings     bookingRepo.BookingRepository
	Holds        holdRepo.HoldRepository
	Grounds      groundRepo.GroundRepository
	Availability availability.AvailabilityService
	Clock        utils.Clock
	TTL          time.Duration
	Location     *time.Location
	Logger       *zap.Logger
}

func (s *DefaultHoldService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *DefaultHoldService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func (s *DefaultHoldService) IsExpired(expiresAt time.Time) bool {
	return IsExpired(expiresAt, s.now())
}

func (s *DefaultHoldService) Acquire(ctx context.Context, req models.HoldRequest) (*models.HoldReceipt, error) {
	if req.BookingID != "" {
		return s.attach(ctx, req.BookingID)
	}
	if req.ResourceID == "" || req.Date == "" || req.Range == "" {
		return nil, models.NewValidationError("hold", "resourceId, date and range are required unless bookingId is given")
	}

	rng, err := slots.ParseRange(req.Range, false)
	if err != nil {
		return nil, err
	}
	if err := slots.RequireWholeHours(rng); err != nil {
		return nil, err
	}
	if _, err := slots.ParseDate(req.Date, s.Location); err != nil {
		return nil, err
	}
	if _, err := s.Grounds.GetByID(ctx, req.ResourceID); err != nil {
		return nil, err
	}

	if err := s.Availability.CheckRange(ctx, availability.RangeQuery{
		ResourceID: req.ResourceID,
		Date:       req.Date,
		Range:      rng,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	h := &models.Hold{
		ID:          uuid.New().String(),
		ResourceID:  req.ResourceID,
		Date:        req.Date,
		Range:       rng,
		Slots:       slots.Hours(rng),
		RequesterID: req.RequesterID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
	}
	if err := s.insert(ctx, h); err != nil {
		return nil, err
	}
	s.Availability.Invalidate(ctx, h.ResourceID, h.Date)

	s.Logger.Info("hold acquired",
		zap.String("holdId", h.ID),
		zap.String("resourceId", h.ResourceID),
		zap.String("date", h.Date),
		zap.String("range", h.Range.String()),
		zap.Time("expiresAt", h.ExpiresAt))
	return &models.HoldReceipt{HoldID: h.ID, ExpiresAt: h.ExpiresAt}, nil
}

// insert writes the hold. An expired hold that was not swept yet may still
// own the slot lock; it is purged and the insert retried once.
func (s *DefaultHoldService) insert(ctx context.Context, h *models.Hold) error {
	err := s.Holds.Insert(ctx, h)
	if !errors.Is(err, models.ErrSlotTaken) {
		return err
	}
	purged, perr := s.Holds.DeleteExpiredOverlapping(ctx, h.ResourceID, h.Date, h.Slots, s.now())
	if perr != nil {
		return perr
	}
	if purged > 0 {
		err = s.Holds.Insert(ctx, h)
	}
	if errors.Is(err, models.ErrSlotTaken) {
		return &models.ConflictError{ConflictingRange: h.Range}
	}
	return err
}

// attach embeds a hold in a pending booking so it survives until payment.
func (s *DefaultHoldService) attach(ctx context.Context, bookingID string) (*models.HoldReceipt, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusPending {
		return nil, &models.TransitionError{From: b.Status, To: models.StatusPending}
	}
	if err := s.Availability.CheckRange(ctx, availability.RangeQuery{
		ResourceID:       b.ResourceID,
		Date:             b.Date,
		Range:            b.Range,
		ExcludeBookingID: b.ID,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	info := models.HoldInfo{
		ID:        uuid.New().String(),
		Active:    true,
		StartedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Bookings.SetHold(ctx, b.ID, info); err != nil {
		return nil, err
	}
	s.Availability.Invalidate(ctx, b.ResourceID, b.Date)

	s.Logger.Info("hold attached to booking",
		zap.String("bookingId", b.ID),
		zap.String("holdId", info.ID),
		zap.Time("expiresAt", info.ExpiresAt))
	return &models.HoldReceipt{HoldID: info.ID, ExpiresAt: info.ExpiresAt}, nil
}

func (s *DefaultHoldService) Release(ctx context.Context, holdID string, actor models.Actor) error {
	h, err := s.Holds.GetByID(ctx, holdID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if actor.Role == models.ActorRequester && h.RequesterID != actor.ID {
		return models.ErrNotFound
	}
	if err := s.Holds.Delete(ctx, holdID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	s.Availability.Invalidate(ctx, h.ResourceID, h.Date)
	s.Logger.Info("hold released", zap.String("holdId", holdID))
	return nil
}

func (s *DefaultHoldService) ReleaseForBooking(ctx context.Context, bookingID string) error {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Hold == nil {
		return nil
	}
	if err := s.Bookings.ClearHold(ctx, bookingID); err != nil {
		return err
	}
	s.Availability.Invalidate(ctx, b.ResourceID, b.Date)
	return nil
}

func (s *DefaultHoldService) Get(ctx context.Context, holdID string) (*models.Hold, error) {
	h, err := s.Holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if s.IsExpired(h.ExpiresAt) {
		return nil, models.ErrExpiredHold
	}
	return h, nil
}
