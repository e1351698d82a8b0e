package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rodge1109/restaurantordering/internal/catalog"
	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/infra"
)

const catalogCacheKey = "catalog:products"

type CatalogService struct {
	source infra.CatalogSource
	cache  infra.Cache
	ttl    time.Duration
	group  singleflight.Group
	log    *slog.Logger
}

func NewCatalogService(src infra.CatalogSource, ttl time.Duration, log *slog.Logger) *CatalogService {
	return &CatalogService{
		source: src,
		ttl:    ttl,
		log:    log.With("component", "catalog_service"),
	}
}

func (s *CatalogService) SetCache(c infra.Cache) {
	s.cache = c
}

// Products serves the catalog from cache when possible. Concurrent misses
// share one sheet fetch.
func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, error) {
	if s.cache != nil {
		b, err := s.cache.Get(ctx, catalogCacheKey)
		if err != nil {
			s.log.Warn("catalog cache read failed", "err", err)
		}
		if len(b) > 0 {
			var products []domain.Product
			if err := json.Unmarshal(b, &products); err == nil {
				return products, nil
			}
		}
	}

	v, err, _ := s.group.Do(catalogCacheKey, func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *CatalogService) load(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.source.FetchRows(ctx)
	if err != nil {
		return nil, err
	}
	products := catalog.MapRows(rows)

	if s.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, data, s.ttl); err != nil {
				s.log.Warn("catalog cache write failed", "err", err)
			}
		}
	}
	return products, nil
}

// Warmup fills the cache ahead of the first request.
func (s *CatalogService) Warmup(ctx context.Context) error {
	products, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.log.Info("catalog warmed", "products", len(products))
	return nil
}
