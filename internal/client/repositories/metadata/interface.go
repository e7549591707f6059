package metadata

import (
	"context"
)

// Repository is a small key/value store in the local cache. The session
// store keeps its persisted credential here.
type Repository interface {
	// Get returns the value for key, or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all pairs atomically.
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
