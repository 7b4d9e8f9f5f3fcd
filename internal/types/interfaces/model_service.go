package interfaces

import (
	"context"

	"github.com/pickeld/lucy/internal/types"
)

// ModelService manages stored model configurations (C1): which
// chat/embedding/rerank/vllm vendor to call and with what credentials.
type ModelService interface {
	CreateModel(ctx context.Context, model *types.Model) error
	GetModelByID(ctx context.Context, id string) (*types.Model, error)
	ListModels(ctx context.Context) ([]*types.Model, error)
	UpdateModel(ctx context.Context, model *types.Model) error
	DeleteModel(ctx context.Context, id string) error
}
