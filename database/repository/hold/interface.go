package holdRepo

import (
	"context"
	"time"

	"groundbook/models"
)

type HoldRepository interface {
	// Insert stores h unless another hold already claims one of its slots,
	// in which case it returns models.ErrSlotTaken.
	Insert(ctx context.Context, h *models.Hold) error
	GetByID(ctx context.Context, id string) (*models.Hold, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpiredOverlapping purges expired holds that still claim any of slots.
	DeleteExpiredOverlapping(ctx context.Context, resourceID, date string, slots []int, now time.Time) (int64, error)
	ListLive(ctx context.Context, resourceID, date string, now time.Time) ([]models.Hold, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}
