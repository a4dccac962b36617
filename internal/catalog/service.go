package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// ItemSource is the storage side of the service.
type ItemSource interface {
	ItemByCode(ctx context.Context, code string) (Item, bool, error)
	SearchItems(ctx context.Context, term string, limit int) ([]Item, error)
}

// Service serves item lookups with a cache-aside Redis layer. Cache
// failures degrade to the store; they never fail the lookup.
type Service struct {
	store ItemSource
	cache *Cache
	log   zerolog.Logger
}

// NewService constructs the catalog service.
func NewService(store ItemSource, cache *Cache, log zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

func itemKey(code string) string {
	return "catalog:item:" + code
}

// ItemByCode resolves one item, preferring the cache.
func (s *Service) ItemByCode(ctx context.Context, code string) (Item, bool, error) {
	if code == "" {
		return Item{}, false, nil
	}
	var cached Item
	hit, err := s.cache.GetJSON(ctx, itemKey(code), &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("item", code).Msg("item cache read failed")
	} else if hit {
		return cached, true, nil
	}

	item, ok, err := s.store.ItemByCode(ctx, code)
	if err != nil || !ok {
		return Item{}, false, err
	}
	if err := s.cache.SetJSON(ctx, itemKey(code), item); err != nil {
		s.log.Warn().Err(err).Str("item", code).Msg("item cache write failed")
	}
	return item, true, nil
}

// Search proxies the item picker query straight to the store. Search
// results are not cached; the term space is too wide to be worth it.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]Item, error) {
	return s.store.SearchItems(ctx, term, limit)
}
