package interfaces

import (
	"context"

	"github.com/pickeld/lucy/internal/types"
)

// ModelRepository persists model configuration rows.
type ModelRepository interface {
	Create(ctx context.Context, model *types.Model) error
	GetByID(ctx context.Context, id string) (*types.Model, error)
	List(ctx context.Context) ([]*types.Model, error)
	Update(ctx context.Context, model *types.Model) error
	Delete(ctx context.Context, id string) error
}
