// Package services contains the application services behind the CLI.
//
// Each service calls the remote API through client.Client, keeps the local
// cache in step through a mirror, and leaves error classification to the
// caller. A remote 401 or 403 seen by any service ends the session.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/mirror"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/client/storage"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// Session is the part of session.Store the services use.
type Session interface {
	SaveToken(ctx context.Context, token string, userID int64)
	IsAuthenticated(ctx context.Context) bool
	UserID() int64
	Clear(ctx context.Context)
	Restore(ctx context.Context) (bool, error)
}

// Cache bundles one mirror per cached kind.
type Cache struct {
	Profiles   *mirror.Mirror[models.Profile]
	Addresses  *mirror.Mirror[models.Address]
	Adverts    *mirror.Mirror[models.Advert]
	Categories *mirror.Mirror[models.Category]

	// AdvertsByCategory reads cached adverts in one category.
	AdvertsByCategory func(ctx context.Context, categoryID int64) ([]models.Advert, error)
}

func NewCache(db *storage.DB, log logging.Logger) *Cache {
	return &Cache{
		Profiles:   mirror.New[models.Profile]("profiles", db.Profiles, log),
		Addresses:  mirror.New[models.Address]("addresses", db.Addresses, log),
		Adverts:    mirror.New[models.Advert]("adverts", db.Adverts, log),
		Categories: mirror.New[models.Category]("categories", db.Categories, log),

		AdvertsByCategory: db.Adverts.ByCategory,
	}
}

// ClearUser drops everything cached for the signed-in user. Categories are
// public and stay.
func (c *Cache) ClearUser(ctx context.Context) {
	c.Profiles.Clear(ctx)
	c.Addresses.Clear(ctx)
	c.Adverts.Clear(ctx)
}

// guard ends the session when the remote rejected the credential.
type guard struct {
	session Session
	log     logging.Logger
}

func (g guard) check(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, common.ErrUnauthenticated) && g.session.IsAuthenticated(ctx) {
		g.log.Warn(ctx, "credential rejected, signing out", "error", err)
		g.session.Clear(ctx)
	}
	return err
}

// owner returns the signed-in user's id.
func (g guard) owner(ctx context.Context) (int64, error) {
	if !g.session.IsAuthenticated(ctx) {
		return 0, common.ErrUnauthenticated
	}
	return g.session.UserID(), nil
}

func offline(err error) bool {
	return errors.Is(err, common.ErrNetworkUnavailable) || errors.Is(err, common.ErrTimeout)
}

func cachedProfile(ctx context.Context, c *Cache, id int64) (*models.Profile, error) {
	all, err := c.Profiles.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cached profile: %w", err)
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("cached profile %d: %w", id, common.ErrNotFound)
}
