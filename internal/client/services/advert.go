package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/linking"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// AdvertService manages the signed-in user's adverts and browses the public
// listing. Both end up in the same advert cache.
type AdvertService interface {
	Mine(ctx context.Context) ([]models.Advert, error)
	Browse(ctx context.Context, q client.AdvertQuery) (*client.AdvertPage, error)
	Create(ctx context.Context, d models.AdvertDraft) (models.Advert, error)
	Update(ctx context.Context, a models.Advert) (models.Advert, error)
	Delete(ctx context.Context, id int64) error
	// Cached returns the cached adverts owned by the cached profile.
	Cached(ctx context.Context) ([]models.Advert, error)
	// CachedBrowse returns cached adverts in a category, or all of them for 0.
	CachedBrowse(ctx context.Context, categoryID int64) ([]models.Advert, error)
}

type advertService struct {
	guard
	client client.Client
	cache  *Cache
	orch   *linking.Orchestrator[models.AdvertDraft, models.Advert]
}

func NewAdvertService(c client.Client, s Session, cache *Cache, log logging.Logger, linkTimeout time.Duration) AdvertService {
	log = log.With("service", "advert")
	kind := linking.Kind[models.AdvertDraft, models.Advert]{
		Name:   "advert",
		Create: c.CreateAdvert,
		Update: c.UpdateAdvert,
		Delete: c.DeleteAdvert,
		RefOf:  models.Advert.Ref,
		Refs:   func(p *models.Profile) []models.Ref { return p.Adverts },
		Relink: relinker(c, cache, func(ids []int64) client.ProfilePatch {
			return client.ProfilePatch{Adverts: ids}
		}),
	}
	return &advertService{
		guard:  guard{session: s, log: log},
		client: c,
		cache:  cache,
		orch:   linking.New(kind, c, s, log, linkTimeout),
	}
}

func (s *advertService) Mine(ctx context.Context) ([]models.Advert, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	var previous []int64
	if old, err := cachedProfile(ctx, s.cache, owner); err == nil {
		previous = old.AdvertIDs()
	}

	p, err := s.client.Profile(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", s.check(ctx, err))
	}
	s.cache.Profiles.Put(ctx, *p)

	ids := p.AdvertIDs()
	page, err := s.client.ListAdverts(ctx, client.AdvertQuery{IDs: ids, PageSize: max(len(ids), 25)})
	if err != nil {
		return nil, fmt.Errorf("list adverts: %w", s.check(ctx, err))
	}
	s.evict(ctx, append(previous, ids...), page.Adverts)
	for _, a := range page.Adverts {
		s.cache.Adverts.Put(ctx, a)
	}
	return page.Adverts, nil
}

// evict removes the cached adverts among ids that the fresh listing no
// longer contains.
func (s *advertService) evict(ctx context.Context, ids []int64, fresh []models.Advert) {
	for _, id := range ids {
		if !slices.ContainsFunc(fresh, func(a models.Advert) bool { return a.ID == id }) {
			s.cache.Adverts.Remove(ctx, id)
		}
	}
}

// Browse lists public adverts. Any id filter in q is ignored.
func (s *advertService) Browse(ctx context.Context, q client.AdvertQuery) (*client.AdvertPage, error) {
	q.IDs = nil
	page, err := s.client.ListAdverts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("browse adverts: %w", s.check(ctx, err))
	}
	for _, a := range SampleAdverts() {
		s.cache.Adverts.Remove(ctx, a.ID)
	}
	// a single-page listing is complete for its category
	if q.Page <= 1 && page.Pagination.PageCount <= 1 {
		if cached, err := s.CachedBrowse(ctx, q.CategoryID); err == nil {
			s.evict(ctx, advertIDs(cached), page.Adverts)
		}
	}
	for _, a := range page.Adverts {
		s.cache.Adverts.Put(ctx, a)
	}
	return page, nil
}

func advertIDs(list []models.Advert) []int64 {
	ids := make([]int64, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	return ids
}

func (s *advertService) Create(ctx context.Context, d models.AdvertDraft) (models.Advert, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return models.Advert{}, err
	}

	a, err := s.orch.Create(ctx, d, owner)
	if err != nil {
		return a, s.check(ctx, err)
	}
	s.cache.Adverts.Put(ctx, a)
	return a, nil
}

func (s *advertService) Update(ctx context.Context, a models.Advert) (models.Advert, error) {
	if _, err := s.owner(ctx); err != nil {
		return models.Advert{}, err
	}

	updated, err := s.orch.Update(ctx, a)
	if err != nil {
		return models.Advert{}, s.check(ctx, err)
	}
	s.cache.Adverts.Put(ctx, updated)
	return updated, nil
}

func (s *advertService) Delete(ctx context.Context, id int64) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	err = s.orch.Delete(ctx, id, owner)
	if err == nil || errors.Is(err, common.ErrLinkageInconsistent) {
		s.cache.Adverts.Remove(ctx, id)
	}
	return s.check(ctx, err)
}

func (s *advertService) Cached(ctx context.Context) ([]models.Advert, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	p, err := cachedProfile(ctx, s.cache, owner)
	if err != nil {
		return nil, err
	}
	all, err := s.cache.Adverts.All(ctx)
	if err != nil {
		return nil, err
	}
	mine := p.AdvertIDs()
	return slices.DeleteFunc(all, func(a models.Advert) bool {
		return !slices.Contains(mine, a.ID)
	}), nil
}

func (s *advertService) CachedBrowse(ctx context.Context, categoryID int64) ([]models.Advert, error) {
	if categoryID == 0 {
		return s.cache.Adverts.All(ctx)
	}
	return s.cache.AdvertsByCategory(ctx, categoryID)
}
