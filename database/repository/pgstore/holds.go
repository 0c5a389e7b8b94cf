package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	holdRepo "groundbook/database/repository/hold"
	"groundbook/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type HoldStore struct {
	db *sqlx.DB
}

var _ holdRepo.HoldRepository = (*HoldStore)(nil)

func NewHoldStore(db *sqlx.DB) *HoldStore {
	return &HoldStore{db: db}
}

type holdRow struct {
	ID          string        `db:"id"`
	ResourceID  string        `db:"resource_id"`
	Date        string        `db:"date"`
	RangeStart  int           `db:"range_start"`
	RangeEnd    int           `db:"range_end"`
	Slots       pq.Int64Array `db:"slots"`
	RequesterID string        `db:"requester_id"`
	CreatedAt   time.Time     `db:"created_at"`
	ExpiresAt   time.Time     `db:"expires_at"`
}

func (r holdRow) toModel() models.Hold {
	slots := make([]int, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = int(s)
	}
	return models.Hold{
		ID:          r.ID,
		ResourceID:  r.ResourceID,
		Date:        r.Date,
		Range:       models.TimeRange{Start: r.RangeStart, End: r.RangeEnd},
		Slots:       slots,
		RequesterID: r.RequesterID,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

const holdColumns = `id, resource_id, date, range_start, range_end, slots, requester_id, created_at, expires_at`

func int64s(slots []int) pq.Int64Array {
	out := make(pq.Int64Array, len(slots))
	for i, s := range slots {
		out[i] = int64(s)
	}
	return out
}

func (s *HoldStore) Insert(ctx context.Context, h *models.Hold) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO holds (`+holdColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.ID, h.ResourceID, h.Date, h.Range.Start, h.Range.End, int64s(h.Slots), h.RequesterID, h.CreatedAt, h.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	for _, hour := range h.Slots {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hold_slot_locks (resource_id, date, hour, hold_id) VALUES ($1, $2, $3, $4)`,
			h.ResourceID, h.Date, hour, h.ID,
		)
		if err != nil {
			if _, ok := isUniqueViolation(err); ok {
				return models.ErrSlotTaken
			}
			return fmt.Errorf("failed to lock slot %d: %w", hour, err)
		}
	}
	return tx.Commit()
}

func (s *HoldStore) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var row holdRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching hold %s: %w", id, err)
	}
	h := row.toModel()
	return &h, nil
}

func (s *HoldStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM holds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete hold %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *HoldStore) DeleteExpiredOverlapping(ctx context.Context, resourceID, date string, slots []int, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM holds
		WHERE expires_at < $4 AND id IN (
			SELECT hold_id FROM hold_slot_locks
			WHERE resource_id = $1 AND date = $2 AND hour = ANY($3)
		)`, resourceID, date, int64s(slots), now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired holds: %w", err)
	}
	return res.RowsAffected()
}

func (s *HoldStore) ListLive(ctx context.Context, resourceID, date string, now time.Time) ([]models.Hold, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rows []holdRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+holdColumns+` FROM holds WHERE resource_id = $1 AND date = $2 AND expires_at >= $3`,
		resourceID, date, now)
	if err != nil {
		return nil, fmt.Errorf("error finding holds: %w", err)
	}
	holds := make([]models.Hold, 0, len(rows))
	for _, row := range rows {
		holds = append(holds, row.toModel())
	}
	return holds, nil
}

func (s *HoldStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM holds WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", err)
	}
	return res.RowsAffected()
}

func (s *HoldStore) EnsureIndexes(ctx context.Context) error { return nil }
