package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// CatalogService serves the public category list.
type CatalogService interface {
	// Categories fetches the categories. When the remote cannot be reached
	// the cached list is returned together with the error.
	Categories(ctx context.Context) ([]models.Category, error)
	// SeedDefaults fills an empty cache with sample data and reports whether
	// anything was stored.
	SeedDefaults(ctx context.Context) (bool, error)
}

type catalogService struct {
	client client.Client
	cache  *Cache
	log    logging.Logger
}

func NewCatalogService(c client.Client, cache *Cache, log logging.Logger) CatalogService {
	return &catalogService{client: c, cache: cache, log: log.With("service", "catalog")}
}

func (s *catalogService) Categories(ctx context.Context) ([]models.Category, error) {
	list, err := s.client.ListCategories(ctx)
	if err != nil {
		if offline(err) {
			if cached, cerr := s.cache.Categories.All(ctx); cerr == nil && len(cached) > 0 {
				s.log.Info(ctx, "remote unavailable, using cached categories", "error", err)
				return cached, err
			}
		}
		return nil, fmt.Errorf("list categories: %w", err)
	}

	s.cache.Categories.Replace(ctx, list)
	return list, nil
}

func (s *catalogService) SeedDefaults(ctx context.Context) (bool, error) {
	cats, err := s.cache.Categories.SeedIfEmpty(ctx, DefaultCategories())
	if err != nil {
		return false, fmt.Errorf("seed categories: %w", err)
	}
	ads, err := s.cache.Adverts.SeedIfEmpty(ctx, SampleAdverts())
	if err != nil {
		return cats, fmt.Errorf("seed adverts: %w", err)
	}
	return cats || ads, nil
}
