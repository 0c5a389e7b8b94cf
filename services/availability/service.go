package availability

import (
	"context"
	"fmt"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	groundRepo "groundbook/database/repository/ground"
	holdRepo "groundbook/database/repository/hold"
	"groundbook/models"
	"groundbook/services/slots"
	"groundbook/utils"

	"go.uber.org/zap"
)

// DefaultAvailabilityService reads occupancy straight from the stores.
type DefaultAvailabilityService struct {
	Bookings bookingRepo.BookingRepository
	Holds    holdRepo.HoldRepository
	Grounds  groundRepo.GroundRepository
	Cache    GridCache
	CacheTTL time.Duration
	Clock    utils.Clock
	Location *time.Location
	Logger   *zap.Logger
}

// occupant is anything currently claiming part of a day.
type occupant struct {
	Range models.TimeRange
	Kind  string
	ID    string
}

func (s *DefaultAvailabilityService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *DefaultAvailabilityService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *DefaultAvailabilityService) DayGrid(ctx context.Context, resourceID, date string) (*models.AvailabilityResponse, error) {
	day, err := slots.ParseDate(date, s.loc())
	if err != nil {
		return nil, err
	}
	if _, err := s.Grounds.GetByID(ctx, resourceID); err != nil {
		return nil, err
	}

	key := cacheKey(resourceID, date)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	occupants, err := s.occupants(ctx, resourceID, date, RangeQuery{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &models.AvailabilityResponse{ResourceID: resourceID, Date: date, Slots: make([]models.SlotAvailability, 0, 24)}
	for h := 0; h < 24; h++ {
		bucket := slots.HourRange(h)
		available := !started(day, bucket, now)
		if available {
			for _, o := range occupants {
				if slots.Overlaps(o.Range, bucket) {
					available = false
					break
				}
			}
		}
		resp.Slots = append(resp.Slots, models.SlotAvailability{
			Range:     bucket,
			Label:     bucket.String(),
			Start:     bucket.Start,
			End:       bucket.End,
			Available: available,
		})
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, key, resp, s.cacheTTL())
	}
	return resp, nil
}

func (s *DefaultAvailabilityService) CheckRange(ctx context.Context, q RangeQuery) error {
	day, err := slots.ParseDate(q.Date, s.loc())
	if err != nil {
		return err
	}
	if started(day, q.Range, s.now()) {
		return &models.ConflictError{ConflictingRange: q.Range, Message: fmt.Sprintf("that time has already passed (%s)", q.Range)}
	}

	occupants, err := s.occupants(ctx, q.ResourceID, q.Date, q)
	if err != nil {
		return err
	}
	for _, o := range occupants {
		if slots.Overlaps(o.Range, q.Range) {
			return &models.ConflictError{ConflictingRange: o.Range}
		}
	}
	return nil
}

func (s *DefaultAvailabilityService) Invalidate(ctx context.Context, resourceID, date string) {
	if s.Cache == nil {
		return
	}
	s.Cache.Delete(ctx, cacheKey(resourceID, date))
}

// occupants lists active bookings, live embedded holds and live standalone
// holds for the day, minus the claims named in ex.
func (s *DefaultAvailabilityService) occupants(ctx context.Context, resourceID, date string, ex RangeQuery) ([]occupant, error) {
	now := s.now()

	bookings, err := s.Bookings.ListOccupying(ctx, resourceID, date, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	holds, err := s.Holds.ListLive(ctx, resourceID, date, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load holds: %w", err)
	}

	var out []occupant
	for _, b := range bookings {
		if b.ID == ex.ExcludeBookingID {
			continue
		}
		if b.Hold != nil && b.Hold.ID != "" && b.Hold.ID == ex.ExcludeHoldID {
			continue
		}
		out = append(out, occupant{Range: b.Range, Kind: "booking", ID: b.ID})
	}
	for _, h := range holds {
		if h.ID == ex.ExcludeHoldID {
			continue
		}
		out = append(out, occupant{Range: h.Range, Kind: "hold", ID: h.ID})
	}
	return out, nil
}

// started reports whether r on day has already begun at now.
func started(day time.Time, r models.TimeRange, now time.Time) bool {
	start := day.Add(time.Duration(r.Start) * time.Minute)
	return !now.Before(start)
}

func (s *DefaultAvailabilityService) cacheTTL() time.Duration {
	if s.CacheTTL <= 0 {
		return utils.DefaultAvailabilityCacheTTL
	}
	return s.CacheTTL
}

func cacheKey(resourceID, date string) string {
	return utils.AvailabilityCachePrefix + resourceID + ":" + date
}
