package metadata

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "session.token", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "session.token")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Absent(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))

	v, err := r.Get(context.Background(), "absent")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, v)
}

func TestSet_Overwrites(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestSetMany_And_List(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{
		"a": {0xAA},
		"b": {0xBB, 0xCC},
	}))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": {0xAA}, "b": {0xBB, 0xCC}}, m)
}

func TestDelete_ManyKeys_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{"x": {1}, "y": {2}, "z": {3}}))
	require.NoError(t, r.Delete(ctx, "x", "y"))
	require.NoError(t, r.Delete(ctx, "x", "y"))
	require.NoError(t, r.Delete(ctx))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"z": {3}}, m)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenCache(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{1}))
	require.NoError(t, r.Clear(ctx))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := testutil.OpenCache(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get metadata[k]")
	assert.ErrorContains(t, r.Set(ctx, "k", nil), "failed to set metadata[k]")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata")
	assert.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")
	_, err = r.List(ctx)
	assert.ErrorContains(t, err, "failed to list metadata")
}
