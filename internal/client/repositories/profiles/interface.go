package profiles

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
)

// Repository caches profile snapshots so the signed-in user's details can be
// shown offline.
type Repository interface {
	Upsert(ctx context.Context, p models.Profile) error
	ReplaceAll(ctx context.Context, list []models.Profile) error
	// Get returns the cached profile or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.Profile, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]models.Profile, error)
}
