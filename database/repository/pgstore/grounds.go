package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	groundRepo "groundbook/database/repository/ground"
	"groundbook/models"

	"github.com/jmoiron/sqlx"
)

type GroundStore struct {
	db *sqlx.DB
}

var _ groundRepo.GroundRepository = (*GroundStore)(nil)

func NewGroundStore(db *sqlx.DB) *GroundStore {
	return &GroundStore{db: db}
}

func (s *GroundStore) GetByID(ctx context.Context, id string) (*models.Ground, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc []byte
	if err := s.db.GetContext(ctx, &doc, `SELECT doc FROM grounds WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching ground %s: %w", id, err)
	}
	var g models.Ground
	if err := json.Unmarshal(doc, &g); err != nil {
		return nil, fmt.Errorf("failed to decode ground %s: %w", id, err)
	}
	return &g, nil
}

func (s *GroundStore) List(ctx context.Context) ([]models.Ground, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var docs [][]byte
	if err := s.db.SelectContext(ctx, &docs, `SELECT doc FROM grounds`); err != nil {
		return nil, fmt.Errorf("error listing grounds: %w", err)
	}
	grounds := make([]models.Ground, 0, len(docs))
	for _, doc := range docs {
		var g models.Ground
		if err := json.Unmarshal(doc, &g); err != nil {
			return nil, fmt.Errorf("failed to decode ground: %w", err)
		}
		grounds = append(grounds, g)
	}
	sort.Slice(grounds, func(i, j int) bool { return grounds[i].Name < grounds[j].Name })
	return grounds, nil
}

func (s *GroundStore) Upsert(ctx context.Context, g *models.Ground) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode ground: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO grounds (id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		g.ID, doc, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save ground %s: %w", g.ID, err)
	}
	return nil
}

func (s *GroundStore) EnsureIndexes(ctx context.Context) error { return nil }
