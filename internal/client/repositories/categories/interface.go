package categories

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, c models.Category) error
	ReplaceAll(ctx context.Context, list []models.Category) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]models.Category, error)
}
