package availability

import (
	"context"
	"testing"
	"time"

	"groundbook/database/repository/memstore"
	"groundbook/models"
	"groundbook/utils"

	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *DefaultAvailabilityService
	bookings *memstore.BookingStore
	holds    *memstore.HoldStore
	clock    *utils.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: memstore.NewBookingStore(),
		holds:    memstore.NewHoldStore(),
		clock:    utils.NewManualClock(t0),
	}
	grounds := memstore.NewGroundStore()
	if err := grounds.Upsert(context.Background(), &models.Ground{ID: "g1", Name: "Turf One", Capacity: 14}); err != nil {
		t.Fatal(err)
	}
	f.svc = &DefaultAvailabilityService{
		Bookings: f.bookings,
		Holds:    f.holds,
		Grounds:  grounds,
		Clock:    f.clock,
		Location: time.UTC,
		Logger:   zap.NewNop(),
	}
	return f
}

func booking(id, date string, start, end int, status models.BookingStatus) *models.Booking {
	var hours []int
	for h := start; h < end; h++ {
		hours = append(hours, h)
	}
	return &models.Booking{
		ID: id, Code: id, ResourceID: "g1", Date: date,
		Range:  models.TimeRange{Start: start * 60, End: end * 60},
		Slots:  hours,
		Status: status, Active: status.IsActive(),
		CreatedAt: t0,
	}
}

func TestDayGridMarksBookingsAndHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bookings.Put(booking("b1", "2025-03-02", 17, 19, models.StatusConfirmed))
	f.bookings.Put(booking("b2", "2025-03-02", 10, 11, models.StatusCancelled))
	if err := f.holds.Insert(ctx, &models.Hold{
		ID: "h1", ResourceID: "g1", Date: "2025-03-02",
		Range: models.TimeRange{Start: 7 * 60, End: 8 * 60}, Slots: []int{7},
		ExpiresAt: t0.Add(5 * time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	grid, err := f.svc.DayGrid(ctx, "g1", "2025-03-02")
	if err != nil {
		t.Fatalf("DayGrid: %v", err)
	}
	if len(grid.Slots) != 24 {
		t.Fatalf("got %d buckets, want 24", len(grid.Slots))
	}
	taken := map[int]bool{7: true, 17: true, 18: true}
	for h, s := range grid.Slots {
		if s.Available == taken[h] {
			t.Errorf("hour %d available=%v", h, s.Available)
		}
	}
	if grid.Slots[17].Label != "17:00-18:00" {
		t.Errorf("label = %q", grid.Slots[17].Label)
	}
}

func TestDayGridTreatsElapsedHoursAsOccupied(t *testing.T) {
	f := newFixture(t)
	grid, err := f.svc.DayGrid(context.Background(), "g1", "2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	for h, s := range grid.Slots {
		if want := h > 8; s.Available != want {
			t.Errorf("hour %d available=%v, want %v", h, s.Available, want)
		}
	}
}

func TestDayGridIgnoresExpiredHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.holds.Insert(ctx, &models.Hold{
		ID: "h1", ResourceID: "g1", Date: "2025-03-02",
		Range: models.TimeRange{Start: 600, End: 660}, Slots: []int{10},
		ExpiresAt: t0.Add(5 * time.Minute),
	}); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5*time.Minute + time.Second)

	grid, err := f.svc.DayGrid(ctx, "g1", "2025-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if !grid.Slots[10].Available {
		t.Error("expired hold still blocks its slot")
	}
}

func TestCheckRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bookings.Put(booking("b1", "2025-03-02", 17, 19, models.StatusPending))

	err := f.svc.CheckRange(ctx, RangeQuery{ResourceID: "g1", Date: "2025-03-02", Range: models.TimeRange{Start: 18 * 60, End: 20 * 60}})
	if !models.IsConflict(err) {
		t.Fatalf("overlap: got %v, want conflict", err)
	}
	if ce := err.(*models.ConflictError); ce.ConflictingRange.String() != "17:00-19:00" {
		t.Errorf("conflicting range = %s", ce.ConflictingRange)
	}

	if err := f.svc.CheckRange(ctx, RangeQuery{ResourceID: "g1", Date: "2025-03-02", Range: models.TimeRange{Start: 19 * 60, End: 20 * 60}}); err != nil {
		t.Fatalf("adjacent: %v", err)
	}

	own := RangeQuery{ResourceID: "g1", Date: "2025-03-02", Range: models.TimeRange{Start: 17 * 60, End: 19 * 60}, ExcludeBookingID: "b1"}
	if err := f.svc.CheckRange(ctx, own); err != nil {
		t.Fatalf("own booking should not conflict: %v", err)
	}

	past := RangeQuery{ResourceID: "g1", Date: "2025-03-01", Range: models.TimeRange{Start: 8 * 60, End: 9 * 60}}
	if err := f.svc.CheckRange(ctx, past); !models.IsConflict(err) {
		t.Fatalf("started slot: got %v, want conflict", err)
	}
}

func TestDayGridUnknownGround(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.DayGrid(context.Background(), "nope", "2025-03-02"); err != models.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
