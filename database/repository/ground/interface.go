package groundRepo

import (
	"context"

	"groundbook/models"
)

// GroundRepository is the read side the engine consumes plus the operator
// write used to define rate ranges.
type GroundRepository interface {
	GetByID(ctx context.Context, id string) (*models.Ground, error)
	List(ctx context.Context) ([]models.Ground, error)
	Upsert(ctx context.Context, g *models.Ground) error
	EnsureIndexes(ctx context.Context) error
}
