package addresses

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a models.Address) error {
	query := `INSERT INTO addresses (id, document_id, name, address_line1, address_line2, city,
			post_code, country, phone_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id,
			name = excluded.name,
			address_line1 = excluded.address_line1,
			address_line2 = excluded.address_line2,
			city = excluded.city,
			post_code = excluded.post_code,
			country = excluded.country,
			phone_number = excluded.phone_number,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DocumentID, a.Name, a.AddressLine1, a.AddressLine2, a.City,
		a.PostCode, a.Country, a.PhoneNumber,
		timex.FormatTimestamp(a.CreatedAt), timex.FormatTimestamp(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert address %d: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Address) error {
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete address %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM addresses`); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count addresses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Address, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, document_id, name, address_line1, address_line2,
		city, post_code, country, phone_number, created_at, updated_at
		FROM addresses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select addresses: %w", err)
	}
	defer rows.Close()

	result := []models.Address{}
	for rows.Next() {
		var (
			a                    models.Address
			createdAt, updatedAt string
		)
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Name, &a.AddressLine1, &a.AddressLine2,
			&a.City, &a.PostCode, &a.Country, &a.PhoneNumber, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		if a.CreatedAt, err = timex.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("address %d: %w", a.ID, err)
		}
		if a.UpdatedAt, err = timex.ParseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("address %d: %w", a.ID, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addresses: %w", err)
	}
	return result, nil
}
