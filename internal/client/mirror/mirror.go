// Package mirror keeps a best-effort local copy of remote data.
//
// Writes never fail from the caller's point of view: a cache error is logged
// and the remote result still stands. Reads report errors so callers can
// tell an empty cache from a broken one.
package mirror

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/bazaar/internal/broadcast"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// Repository is the storage a Mirror writes through. The per-kind SQLite
// repositories implement it.
type Repository[T any] interface {
	Upsert(ctx context.Context, item T) error
	ReplaceAll(ctx context.Context, items []T) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]T, error)
}

// Mirror wraps a Repository for one kind of entity.
type Mirror[T any] struct {
	kind string
	repo Repository[T]
	log  logging.Logger

	// mu orders writes with the snapshots published to watchers.
	mu  sync.Mutex
	hub broadcast.Hub[[]T]
}

func New[T any](kind string, repo Repository[T], log logging.Logger) *Mirror[T] {
	return &Mirror[T]{kind: kind, repo: repo, log: log.With("cache", kind)}
}

func (m *Mirror[T]) write(ctx context.Context, op string, fn func(ctx context.Context) error, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.log.Warn(ctx, "cache write failed", append(args, "op", op, "error", err)...)
		return
	}
	m.publishLocked(ctx)
}

func (m *Mirror[T]) publishLocked(ctx context.Context) {
	if m.hub.Len() == 0 {
		return
	}
	items, err := m.repo.GetAll(ctx)
	if err != nil {
		m.log.Warn(ctx, "cache snapshot failed", "error", err)
		return
	}
	m.hub.Publish(items)
}

// Put stores or replaces one item.
func (m *Mirror[T]) Put(ctx context.Context, item T) {
	m.write(ctx, "put", func(ctx context.Context) error { return m.repo.Upsert(ctx, item) })
}

// Replace overwrites the whole cache with items.
func (m *Mirror[T]) Replace(ctx context.Context, items []T) {
	m.write(ctx, "replace", func(ctx context.Context) error { return m.repo.ReplaceAll(ctx, items) },
		"count", len(items))
}

// Remove drops the item with id.
func (m *Mirror[T]) Remove(ctx context.Context, id int64) {
	m.write(ctx, "remove", func(ctx context.Context) error { return m.repo.Delete(ctx, id) }, "id", id)
}

// Clear empties the cache.
func (m *Mirror[T]) Clear(ctx context.Context) {
	m.write(ctx, "clear", m.repo.DeleteAll)
}

// All returns the cached items.
func (m *Mirror[T]) All(ctx context.Context) ([]T, error) {
	return m.repo.GetAll(ctx)
}

// Watch streams snapshots of the cache: the current one first, then a fresh
// one after every successful write. Only the newest unread snapshot is kept.
// The channel is closed when ctx is done.
func (m *Mirror[T]) Watch(ctx context.Context) <-chan []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.repo.GetAll(ctx)
	if err != nil {
		m.log.Warn(ctx, "cache snapshot failed", "error", err)
		return m.hub.Subscribe(ctx)
	}
	return m.hub.SubscribeWith(ctx, items)
}

// SeedIfEmpty stores defaults when the cache holds nothing and reports
// whether it did.
func (m *Mirror[T]) SeedIfEmpty(ctx context.Context, defaults []T) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 || len(defaults) == 0 {
		return false, nil
	}
	if err := m.repo.ReplaceAll(ctx, defaults); err != nil {
		return false, err
	}
	m.log.Info(ctx, "seeded cache", "count", len(defaults))
	m.publishLocked(ctx)
	return true, nil
}
