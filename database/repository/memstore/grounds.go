package memstore

import (
	"context"
	"sort"
	"sync"

	groundRepo "groundbook/database/repository/ground"
	"groundbook/models"
)

type GroundStore struct {
	mu      sync.RWMutex
	grounds map[string]models.Ground
}

var _ groundRepo.GroundRepository = (*GroundStore)(nil)

func NewGroundStore() *GroundStore {
	return &GroundStore{grounds: make(map[string]models.Ground)}
}

func (s *GroundStore) GetByID(ctx context.Context, id string) (*models.Ground, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grounds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	g.RateRanges = append([]models.RateRange(nil), g.RateRanges...)
	return &g, nil
}

func (s *GroundStore) List(ctx context.Context) ([]models.Ground, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Ground, 0, len(s.grounds))
	for _, g := range s.grounds {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *GroundStore) Upsert(ctx context.Context, g *models.Ground) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *g
	c.RateRanges = append([]models.RateRange(nil), g.RateRanges...)
	s.grounds[g.ID] = c
	return nil
}

func (s *GroundStore) EnsureIndexes(ctx context.Context) error { return nil }
