// Package memstore keeps bookings, holds and grounds in process memory. It
// enforces the same per-slot uniqueness rules as the durable stores under a
// mutex, so it is only correct for a single instance.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	"groundbook/models"
)

type BookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

var _ bookingRepo.BookingRepository = (*BookingStore)(nil)

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]*models.Booking)}
}

func (s *BookingStore) InsertIfSlotFree(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookings {
		if existing.Code == b.Code {
			return bookingRepo.ErrDuplicateCode
		}
		if b.Active && existing.Active && sameDay(existing, b) && sharesSlot(existing.Slots, b.Slots) {
			return models.ErrSlotTaken
		}
	}
	s.bookings[b.ID] = cloneBooking(b)
	return nil
}

// Put stores b without any uniqueness check. Used to seed rows that predate
// the slot constraint.
func (s *BookingStore) Put(b *models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *BookingStore) ListOccupying(ctx context.Context, resourceID, date string, now time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Booking
	for _, b := range s.bookings {
		if b.ResourceID != resourceID || b.Date != date {
			continue
		}
		liveHold := b.Hold != nil && b.Hold.Active && !b.Hold.ExpiresAt.Before(now)
		if b.Active || liveHold {
			out = append(out, *cloneBooking(b))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *BookingStore) Transition(ctx context.Context, id string, t models.Transition) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !t.Allows(b) {
		return nil, &models.TransitionError{From: b.Status, To: t.Target(b.Status)}
	}
	t.Apply(b)
	return cloneBooking(b), nil
}

func (s *BookingStore) SetHold(ctx context.Context, id string, hold models.HoldInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if b.Status != models.StatusPending {
		return &models.TransitionError{From: b.Status, To: models.StatusPending}
	}
	h := hold
	b.Hold = &h
	b.UpdatedAt = hold.StartedAt
	return nil
}

func (s *BookingStore) ClearHold(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	b.Hold = nil
	return nil
}

func (s *BookingStore) SetPaymentSession(ctx context.Context, id, prevSessionID string, sess models.PaymentSession, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if b.Status != models.StatusPending {
		return &models.TransitionError{From: b.Status, To: models.StatusPending}
	}
	if b.Payment.SessionID != prevSessionID {
		return bookingRepo.ErrSessionChanged
	}
	b.Payment.SessionID = sess.SessionID
	b.Payment.CheckoutURL = sess.URL
	b.Payment.Status = models.PaymentStatusPending
	b.UpdatedAt = at
	return nil
}

func (s *BookingStore) ListRefunding(ctx context.Context, before time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Booking
	for _, b := range s.bookings {
		if b.Payment.Status == models.PaymentStatusRefunding && !b.UpdatedAt.After(before) {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *BookingStore) ListExpirableUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.StatusPending &&
			b.Payment.Status != models.PaymentStatusCompleted &&
			!b.CreatedAt.After(cutoff) {
			out = append(out, *cloneBooking(b))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *BookingStore) ClearExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, b := range s.bookings {
		if b.Hold != nil && now.After(b.Hold.ExpiresAt) {
			b.Hold = nil
			n++
		}
	}
	return n, nil
}

func (s *BookingStore) FindDuplicateGroups(ctx context.Context) ([][]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		requester, resource, date string
		start, end                int
	}
	groups := make(map[key][]models.Booking)
	for _, b := range s.bookings {
		if !b.Active {
			continue
		}
		k := key{resource: b.ResourceID, date: b.Date, start: b.Range.Start, end: b.Range.End}
		if b.RequesterID != nil {
			k.requester = *b.RequesterID
		}
		groups[k] = append(groups[k], *cloneBooking(b))
	}

	var out [][]models.Booking
	for _, g := range groups {
		if len(g) > 1 {
			sortByCreated(g)
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0].CreatedAt.Before(out[j][0].CreatedAt) })
	return out, nil
}

func (s *BookingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *BookingStore) EnsureIndexes(ctx context.Context) error { return nil }

func sameDay(a, b *models.Booking) bool {
	return a.ResourceID == b.ResourceID && a.Date == b.Date
}

func sharesSlot(a, b []int) bool {
	seen := make(map[int]struct{}, len(a))
	for _, h := range a {
		seen[h] = struct{}{}
	}
	for _, h := range b {
		if _, ok := seen[h]; ok {
			return true
		}
	}
	return false
}

func sortByCreated(bs []models.Booking) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].CreatedAt.Before(bs[j].CreatedAt) })
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	c.Slots = append([]int(nil), b.Slots...)
	if b.RequesterID != nil {
		id := *b.RequesterID
		c.RequesterID = &id
	}
	if b.Payment.PaidAt != nil {
		t := *b.Payment.PaidAt
		c.Payment.PaidAt = &t
	}
	if b.Hold != nil {
		h := *b.Hold
		c.Hold = &h
	}
	if b.Cancellation != nil {
		x := *b.Cancellation
		c.Cancellation = &x
	}
	if b.Confirmation != nil {
		x := *b.Confirmation
		c.Confirmation = &x
	}
	return &c
}
