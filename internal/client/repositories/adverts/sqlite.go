// Package adverts is the local cache of adverts.
package adverts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a models.Advert) error {
	var image sql.NullString
	if a.Image != nil {
		b, err := json.Marshal(a.Image)
		if err != nil {
			return fmt.Errorf("encode advert %d image: %w", a.ID, err)
		}
		image = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO adverts (id, document_id, name, content, price, currency, category_id,
			image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id,
			name = excluded.name,
			content = excluded.content,
			price = excluded.price,
			currency = excluded.currency,
			category_id = excluded.category_id,
			image = excluded.image,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DocumentID, a.Name, a.Content, a.Price, a.Currency, a.CategoryID, image,
		timex.FormatTimestamp(a.CreatedAt), timex.FormatTimestamp(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert advert %d: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Advert) error {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, a := range list {
			if err := repo.Upsert(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM adverts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete advert %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM adverts`); err != nil {
		return fmt.Errorf("failed to clear adverts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM adverts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count adverts: %w", err)
	}
	return n, nil
}

const selectAdverts = `SELECT id, document_id, name, content, price, currency, category_id,
	image, created_at, updated_at FROM adverts`

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Advert, error) {
	return r.query(ctx, selectAdverts+` ORDER BY id`)
}

func (r *SQLiteRepository) ByCategory(ctx context.Context, categoryID int64) ([]models.Advert, error) {
	return r.query(ctx, selectAdverts+` WHERE category_id = ? ORDER BY id`, categoryID)
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Advert, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select adverts: %w", err)
	}
	defer rows.Close()

	result := []models.Advert{}
	for rows.Next() {
		var (
			a                    models.Advert
			image                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Name, &a.Content, &a.Price, &a.Currency,
			&a.CategoryID, &image, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan advert: %w", err)
		}
		if image.Valid {
			a.Image = &models.UploadedFile{}
			if err := json.Unmarshal([]byte(image.String), a.Image); err != nil {
				return nil, fmt.Errorf("advert %d image: %w", a.ID, err)
			}
		}
		if a.CreatedAt, err = timex.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("advert %d: %w", a.ID, err)
		}
		if a.UpdatedAt, err = timex.ParseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("advert %d: %w", a.ID, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adverts: %w", err)
	}
	return result, nil
}
