package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/linking"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// AddressService manages the signed-in user's postal addresses.
type AddressService interface {
	Create(ctx context.Context, d models.AddressDraft) (models.Address, error)
	Update(ctx context.Context, a models.Address) (models.Address, error)
	Delete(ctx context.Context, id int64) error
	// List fetches the addresses the profile references and replaces the
	// cached list with them.
	List(ctx context.Context) ([]models.Address, error)
	Cached(ctx context.Context) ([]models.Address, error)
}

type addressService struct {
	guard
	client client.Client
	cache  *Cache
	orch   *linking.Orchestrator[models.AddressDraft, models.Address]
}

func NewAddressService(c client.Client, s Session, cache *Cache, log logging.Logger, linkTimeout time.Duration) AddressService {
	log = log.With("service", "address")
	kind := linking.Kind[models.AddressDraft, models.Address]{
		Name:   "address",
		Create: c.CreateAddress,
		Update: c.UpdateAddress,
		Delete: c.DeleteAddress,
		RefOf:  models.Address.Ref,
		Refs:   func(p *models.Profile) []models.Ref { return p.Addresses },
		Relink: relinker(c, cache, func(ids []int64) client.ProfilePatch {
			return client.ProfilePatch{Addresses: ids}
		}),
	}
	return &addressService{
		guard:  guard{session: s, log: log},
		client: c,
		cache:  cache,
		orch:   linking.New(kind, c, s, log, linkTimeout),
	}
}

// relinker writes one reference list of the owner's profile and caches the
// profile that comes back.
func relinker(c client.Client, cache *Cache, patch func(ids []int64) client.ProfilePatch) func(context.Context, int64, []int64) (*models.Profile, error) {
	return func(ctx context.Context, owner int64, ids []int64) (*models.Profile, error) {
		p, err := c.UpdateProfile(ctx, owner, patch(ids))
		if err != nil {
			return nil, err
		}
		cache.Profiles.Put(ctx, *p)
		return p, nil
	}
}

func (s *addressService) Create(ctx context.Context, d models.AddressDraft) (models.Address, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return models.Address{}, err
	}

	a, err := s.orch.Create(ctx, d, owner)
	if err != nil {
		return a, s.check(ctx, err)
	}
	s.cache.Addresses.Put(ctx, a)
	return a, nil
}

func (s *addressService) Update(ctx context.Context, a models.Address) (models.Address, error) {
	if _, err := s.owner(ctx); err != nil {
		return models.Address{}, err
	}

	updated, err := s.orch.Update(ctx, a)
	if err != nil {
		return models.Address{}, s.check(ctx, err)
	}
	s.cache.Addresses.Put(ctx, updated)
	return updated, nil
}

func (s *addressService) Delete(ctx context.Context, id int64) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	err = s.orch.Delete(ctx, id, owner)
	if err == nil || errors.Is(err, common.ErrLinkageInconsistent) {
		s.cache.Addresses.Remove(ctx, id)
	}
	return s.check(ctx, err)
}

func (s *addressService) List(ctx context.Context) ([]models.Address, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.client.Profile(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", s.check(ctx, err))
	}
	s.cache.Profiles.Put(ctx, *p)

	list, err := s.client.ListAddresses(ctx, p.AddressIDs())
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", s.check(ctx, err))
	}
	s.cache.Addresses.Replace(ctx, list)
	return list, nil
}

func (s *addressService) Cached(ctx context.Context) ([]models.Address, error) {
	return s.cache.Addresses.All(ctx)
}
