package addresses

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
)

// Repository caches the signed-in user's addresses.
type Repository interface {
	// Upsert inserts a or replaces the row with the same id.
	Upsert(ctx context.Context, a models.Address) error

	// ReplaceAll swaps the whole table for list in one transaction.
	ReplaceAll(ctx context.Context, list []models.Address) error

	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)

	// GetAll returns every cached address ordered by id.
	GetAll(ctx context.Context) ([]models.Address, error)
}
