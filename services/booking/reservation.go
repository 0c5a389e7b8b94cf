package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	groundRepo "groundbook/database/repository/ground"
	"groundbook/models"
	"groundbook/services/availability"
	"groundbook/services/events"
	holdsvc "groundbook/services/hold"
	"groundbook/services/slots"
	"groundbook/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCodeAttempts = 5

type DefaultReservationService struct {
	Bookings     bookingRepo.BookingRepository
	Grounds      groundRepo.GroundRepository
	Holds        holdsvc.HoldService
	Availability availability.AvailabilityService
	Events       events.Publisher
	Validate     *validator.Validate
	Clock        utils.Clock
	Location     *time.Location
	HoldTTL      time.Duration
	FeePercent   float64
	Logger       *zap.Logger
}

func (s *DefaultReservationService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// CreateBooking validates the request, re-checks availability and then
// relies on the store's conditional insert to settle any race. Only the
// insert is authoritative; the availability check just fails fast.
func (s *DefaultReservationService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	rng, ground, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	pricing, err := s.price(rng, ground)
	if err != nil {
		return nil, err
	}

	ownHold := s.ownedHold(ctx, req, rng)
	query := availability.RangeQuery{ResourceID: req.ResourceID, Date: req.Date, Range: rng}
	if ownHold != nil {
		query.ExcludeHoldID = ownHold.ID
	}
	if err := s.Availability.CheckRange(ctx, query); err != nil {
		return nil, err
	}

	now := s.now()
	b := &models.Booking{
		ID:          uuid.New().String(),
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		Requester:   req.Requester,
		Date:        req.Date,
		Range:       rng,
		Duration:    slots.Duration(rng),
		Slots:       slots.Hours(rng),
		Active:      true,
		Status:      models.StatusPending,
		Pricing:     pricing,
		Payment:     models.PaymentInfo{Status: models.PaymentStatusNone},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, b); err != nil {
		if errors.Is(err, models.ErrSlotTaken) {
			return nil, s.conflict(ctx, query)
		}
		return nil, err
	}

	if ownHold != nil {
		if err := s.Holds.Release(ctx, ownHold.ID, models.SystemActor); err != nil {
			s.Logger.Warn("failed to release hold after booking", zap.String("holdId", ownHold.ID), zap.Error(err))
		}
	}
	s.attachHold(ctx, b)

	s.Availability.Invalidate(ctx, b.ResourceID, b.Date)
	s.Events.Publish(ctx, events.FromBooking(events.BookingCreated, b, now))
	s.Logger.Info("booking created",
		zap.String("bookingId", b.ID),
		zap.String("code", b.Code),
		zap.String("resourceId", b.ResourceID),
		zap.String("date", b.Date),
		zap.String("range", b.Range.String()),
		zap.Float64("total", b.Pricing.Total))
	return b, nil
}

func (s *DefaultReservationService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *DefaultReservationService) validate(ctx context.Context, req models.CreateBookingRequest) (models.TimeRange, *models.Ground, error) {
	rng, err := slots.ParseRange(req.Range, false)
	if err != nil {
		return rng, nil, err
	}
	if err := slots.RequireWholeHours(rng); err != nil {
		return rng, nil, err
	}
	if _, err := slots.ParseDate(req.Date, s.Location); err != nil {
		return rng, nil, err
	}
	if err := s.Validate.Struct(req.Requester); err != nil {
		return rng, nil, requesterError(err)
	}

	ground, err := s.Grounds.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return rng, nil, models.NewValidationError("resourceId", "unknown ground %q", req.ResourceID)
		}
		return rng, nil, err
	}
	if ground.Capacity > 0 && req.Requester.Players > ground.Capacity {
		return rng, nil, models.NewValidationError("players", "%d players exceeds the ground capacity of %d", req.Requester.Players, ground.Capacity)
	}
	return rng, ground, nil
}

// requesterError flattens validator output into a single ValidationError.
func requesterError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError("requester", "%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return models.NewValidationError("requester", "%s", strings.Join(fields, ", "))
}

func (s *DefaultReservationService) price(rng models.TimeRange, ground *models.Ground) (models.Pricing, error) {
	base, err := slots.PriceFor(rng, ground.RateRanges)
	if err != nil {
		return models.Pricing{}, fmt.Errorf("pricing ground %s: %w", ground.ID, err)
	}
	fee := math.Round(base*s.FeePercent) / 100
	return models.Pricing{Base: base, Discount: 0, Fee: fee, Total: base + fee}, nil
}

// ownedHold returns the caller's live standalone hold when it covers the
// requested range. Anything else is treated as no hold at all.
func (s *DefaultReservationService) ownedHold(ctx context.Context, req models.CreateBookingRequest, rng models.TimeRange) *models.Hold {
	if req.HoldID == "" {
		return nil
	}
	h, err := s.Holds.Get(ctx, req.HoldID)
	if err != nil {
		if !errors.Is(err, models.ErrExpiredHold) && !errors.Is(err, models.ErrNotFound) {
			s.Logger.Warn("failed to load hold", zap.String("holdId", req.HoldID), zap.Error(err))
		}
		return nil
	}
	if h.ResourceID != req.ResourceID || h.Date != req.Date {
		return nil
	}
	if h.Range.Start > rng.Start || h.Range.End < rng.End {
		return nil
	}
	if h.RequesterID != "" && (req.RequesterID == nil || *req.RequesterID != h.RequesterID) {
		return nil
	}
	return h
}

// insert writes b, regenerating its code on the rare collision.
func (s *DefaultReservationService) insert(ctx context.Context, b *models.Booking) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		b.Code = NewBookingCode(b.CreatedAt.In(s.loc()))
		err := s.Bookings.InsertIfSlotFree(ctx, b)
		if !errors.Is(err, bookingRepo.ErrDuplicateCode) {
			return err
		}
	}
	return fmt.Errorf("could not allocate a unique booking code after %d attempts", maxCodeAttempts)
}

// conflict names what took the slot when the insert lost a race.
func (s *DefaultReservationService) conflict(ctx context.Context, q availability.RangeQuery) error {
	err := s.Availability.CheckRange(ctx, q)
	var ce *models.ConflictError
	if errors.As(err, &ce) {
		return ce
	}
	return &models.ConflictError{ConflictingRange: q.Range}
}

// attachHold embeds a payment hold in the new booking. The booking already
// owns its slot, so a failure here is logged and the booking still stands.
func (s *DefaultReservationService) attachHold(ctx context.Context, b *models.Booking) {
	ttl := s.HoldTTL
	if ttl <= 0 {
		ttl = holdsvc.DefaultTTL
	}
	info := models.HoldInfo{
		ID:        uuid.New().String(),
		Active:    true,
		StartedAt: b.CreatedAt,
		ExpiresAt: b.CreatedAt.Add(ttl),
	}
	if err := s.Bookings.SetHold(ctx, b.ID, info); err != nil {
		s.Logger.Warn("failed to attach hold to booking", zap.String("bookingId", b.ID), zap.Error(err))
		return
	}
	b.Hold = &info
}

func (s *DefaultReservationService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// NewBookingCode returns a code of the form GRD-YYMMDD-XXXXXX.
func NewBookingCode(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", utils.BookingCodePrefix, at.Format("060102"), suffix)
}
