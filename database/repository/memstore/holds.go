package memstore

import (
	"context"
	"sync"
	"time"

	holdRepo "groundbook/database/repository/hold"
	"groundbook/models"
)

type HoldStore struct {
	mu    sync.Mutex
	holds map[string]*models.Hold
}

var _ holdRepo.HoldRepository = (*HoldStore)(nil)

func NewHoldStore() *HoldStore {
	return &HoldStore{holds: make(map[string]*models.Hold)}
}

func (s *HoldStore) Insert(ctx context.Context, h *models.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.holds {
		if existing.ResourceID == h.ResourceID && existing.Date == h.Date && sharesSlot(existing.Slots, h.Slots) {
			return models.ErrSlotTaken
		}
	}
	s.holds[h.ID] = cloneHold(h)
	return nil
}

func (s *HoldStore) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneHold(h), nil
}

func (s *HoldStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holds[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.holds, id)
	return nil
}

func (s *HoldStore) DeleteExpiredOverlapping(ctx context.Context, resourceID, date string, slots []int, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, h := range s.holds {
		if h.ResourceID == resourceID && h.Date == date && now.After(h.ExpiresAt) && sharesSlot(h.Slots, slots) {
			delete(s.holds, id)
			n++
		}
	}
	return n, nil
}

func (s *HoldStore) ListLive(ctx context.Context, resourceID, date string, now time.Time) ([]models.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Hold
	for _, h := range s.holds {
		if h.ResourceID == resourceID && h.Date == date && !now.After(h.ExpiresAt) {
			out = append(out, *cloneHold(h))
		}
	}
	return out, nil
}

func (s *HoldStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, h := range s.holds {
		if now.After(h.ExpiresAt) {
			delete(s.holds, id)
			n++
		}
	}
	return n, nil
}

func (s *HoldStore) EnsureIndexes(ctx context.Context) error { return nil }

func cloneHold(h *models.Hold) *models.Hold {
	c := *h
	c.Slots = append([]int(nil), h.Slots...)
	return &c
}
