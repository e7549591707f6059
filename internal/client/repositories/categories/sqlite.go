// Package categories caches the public advert categories.
package categories

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c models.Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (id, document_id, name, slug) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id, name = excluded.name, slug = excluded.slug`,
		c.ID, c.DocumentID, c.Name, c.Slug)
	if err != nil {
		return fmt.Errorf("failed to upsert category %d: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Category) error {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, c := range list {
			if err := repo.Upsert(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}

// GetAll returns categories ordered by id.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, document_id, name, slug FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	result := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return result, nil
}
