package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FileIsMigratedAndReopenable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Categories.Upsert(ctx, models.Category{ID: 1, Name: "Bikes"}))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Categories.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClearUserData_KeepsCategories(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Profiles.Upsert(ctx, models.Profile{ID: 1, Username: "a", Email: "a@x"}))
	require.NoError(t, db.Addresses.Upsert(ctx, models.Address{ID: 2, Name: "Home"}))
	require.NoError(t, db.Adverts.Upsert(ctx, models.Advert{ID: 3, Name: "Bike"}))
	require.NoError(t, db.Categories.Upsert(ctx, models.Category{ID: 4, Name: "Bikes"}))

	require.NoError(t, db.ClearUserData(ctx))

	for name, count := range map[string]func(context.Context) (int, error){
		"profiles":  db.Profiles.Count,
		"addresses": db.Addresses.Count,
		"adverts":   db.Adverts.Count,
	} {
		n, err := count(ctx)
		require.NoError(t, err, name)
		assert.Zero(t, n, name)
	}
	n, err := db.Categories.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
