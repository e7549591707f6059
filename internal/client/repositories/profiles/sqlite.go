// Package profiles is the local cache of profile snapshots. Reference lists
// and the avatar are stored as JSON columns.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
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

func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Profile) error {
	addrs, err := encodeRefs(p.Addresses)
	if err != nil {
		return fmt.Errorf("encode profile %d addresses: %w", p.ID, err)
	}
	ads, err := encodeRefs(p.Adverts)
	if err != nil {
		return fmt.Errorf("encode profile %d adverts: %w", p.ID, err)
	}
	var avatar sql.NullString
	if p.Avatar != nil {
		b, err := json.Marshal(p.Avatar)
		if err != nil {
			return fmt.Errorf("encode profile %d avatar: %w", p.ID, err)
		}
		avatar = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO profiles (id, document_id, username, email, first_name, last_name,
			phone_number, date_of_birth, blocked, confirmed, avatar, addresses, adverts,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id,
			username = excluded.username,
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			phone_number = excluded.phone_number,
			date_of_birth = excluded.date_of_birth,
			blocked = excluded.blocked,
			confirmed = excluded.confirmed,
			avatar = excluded.avatar,
			addresses = excluded.addresses,
			adverts = excluded.adverts,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.DocumentID, p.Username, p.Email, p.FirstName, p.LastName,
		p.PhoneNumber, timex.FormatDate(p.DateOfBirth), p.Blocked, p.Confirmed, avatar, addrs, ads,
		timex.FormatTimestamp(p.CreatedAt), timex.FormatTimestamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert profile %d: %w", p.ID, err)
	}
	return nil
}

func encodeRefs(refs []models.Ref) (string, error) {
	if refs == nil {
		refs = []models.Ref{}
	}
	b, err := json.Marshal(refs)
	return string(b), err
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Profile) error {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, p := range list {
			if err := repo.Upsert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

const selectProfiles = `SELECT id, document_id, username, email, first_name, last_name, phone_number,
	date_of_birth, blocked, confirmed, avatar, addresses, adverts, created_at, updated_at FROM profiles`

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Profile, error) {
	list, err := r.query(ctx, selectProfiles+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("profile %d: %w", id, common.ErrNotFound)
	}
	return &list[0], nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Profile, error) {
	return r.query(ctx, selectProfiles+` ORDER BY id`)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete profile %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	defer rows.Close()

	result := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return result, nil
}

func scanProfile(rows *sql.Rows) (models.Profile, error) {
	var (
		p                         models.Profile
		dob, createdAt, updatedAt string
		addrs, ads                string
		avatar                    sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.DocumentID, &p.Username, &p.Email, &p.FirstName, &p.LastName,
		&p.PhoneNumber, &dob, &p.Blocked, &p.Confirmed, &avatar, &addrs, &ads,
		&createdAt, &updatedAt); err != nil {
		return p, fmt.Errorf("failed to scan profile: %w", err)
	}

	var errs []error
	if err := json.Unmarshal([]byte(addrs), &p.Addresses); err != nil {
		errs = append(errs, fmt.Errorf("addresses: %w", err))
	}
	if err := json.Unmarshal([]byte(ads), &p.Adverts); err != nil {
		errs = append(errs, fmt.Errorf("adverts: %w", err))
	}
	if avatar.Valid {
		p.Avatar = &models.UploadedFile{}
		if err := json.Unmarshal([]byte(avatar.String), p.Avatar); err != nil {
			errs = append(errs, fmt.Errorf("avatar: %w", err))
		}
	}
	var err error
	if p.DateOfBirth, err = timex.ParseTimestamp(dob); err != nil {
		errs = append(errs, err)
	}
	if p.CreatedAt, err = timex.ParseTimestamp(createdAt); err != nil {
		errs = append(errs, err)
	}
	if p.UpdatedAt, err = timex.ParseTimestamp(updatedAt); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return p, fmt.Errorf("profile %d: %w", p.ID, errors.Join(errs...))
	}
	return p, nil
}
