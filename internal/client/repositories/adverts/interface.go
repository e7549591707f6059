package adverts

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
)

// Repository caches adverts, both the user's own and browsed listings.
type Repository interface {
	Upsert(ctx context.Context, a models.Advert) error
	ReplaceAll(ctx context.Context, list []models.Advert) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]models.Advert, error)
	// ByCategory returns cached adverts in one category ordered by id.
	ByCategory(ctx context.Context, categoryID int64) ([]models.Advert, error)
}
