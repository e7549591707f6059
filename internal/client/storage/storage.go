// Package storage opens the local cache database and bundles its
// repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/migrations"
	"github.com/dmitrijs2005/bazaar/internal/client/repositories/addresses"
	"github.com/dmitrijs2005/bazaar/internal/client/repositories/adverts"
	"github.com/dmitrijs2005/bazaar/internal/client/repositories/categories"
	"github.com/dmitrijs2005/bazaar/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bazaar/internal/client/repositories/profiles"

	_ "modernc.org/sqlite"
)

// DB is the opened cache with one repository per cached kind.
type DB struct {
	SQL        *sql.DB
	Metadata   *metadata.SQLiteRepository
	Profiles   *profiles.SQLiteRepository
	Addresses  *addresses.SQLiteRepository
	Adverts    *adverts.SQLiteRepository
	Categories *categories.SQLiteRepository
}

// Open opens the SQLite database at dsn and migrates it. Use ":memory:" for
// a throwaway cache.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", dsn, err)
	}
	// one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure cache: %w", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{
		SQL:        db,
		Metadata:   metadata.NewSQLiteRepository(db),
		Profiles:   profiles.NewSQLiteRepository(db),
		Addresses:  addresses.NewSQLiteRepository(db),
		Adverts:    adverts.NewSQLiteRepository(db),
		Categories: categories.NewSQLiteRepository(db),
	}, nil
}

// ClearUserData removes everything cached for the signed-in user. Public
// categories are kept.
func (d *DB) ClearUserData(ctx context.Context) error {
	for _, clear := range []func(context.Context) error{
		d.Profiles.DeleteAll,
		d.Addresses.DeleteAll,
		d.Adverts.DeleteAll,
	} {
		if err := clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.SQL.Close()
}
