package composite

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"arkx/internal/application/port"
	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

// CookieStore fronts the durable account store with an optional expiring
// cache. The store is authoritative; cache failures are logged, not fatal.
type CookieStore struct {
	store port.AccountStore
	cache port.CookieCache // nil disables caching
}

func NewCookieStore(store port.AccountStore, cache port.CookieCache) *CookieStore {
	return &CookieStore{store: store, cache: cache}
}

// Get reads the cache first and falls back to the durable store,
// backfilling the cache on a hit.
func (s *CookieStore) Get(ctx context.Context, name string) (model.CookieSet, error) {
	if s.cache != nil {
		cs, err := s.cache.GetCookies(ctx, name)
		if err == nil {
			return cs, nil
		}
		if !errors.Is(err, svc.ErrNotFound) {
			log.Warn().Err(err).Str("account", name).Msg("cookie cache read failed")
		}
	}

	cs, err := s.store.GetCookies(ctx, name)
	if err != nil {
		return model.CookieSet{}, err
	}
	if s.cache != nil {
		if err := s.cache.PutCookies(ctx, name, cs); err != nil {
			log.Warn().Err(err).Str("account", name).Msg("cookie cache backfill failed")
		}
	}
	return cs, nil
}

// Put writes through to both layers. The durable write decides success.
func (s *CookieStore) Put(ctx context.Context, name string, cs model.CookieSet) error {
	if err := s.store.PutCookies(ctx, name, cs); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.PutCookies(ctx, name, cs); err != nil {
			log.Warn().Err(err).Str("account", name).Msg("cookie cache write failed")
		}
	}
	return nil
}

// Invalidate drops the cached entry so the next Get hits the store.
func (s *CookieStore) Invalidate(ctx context.Context, name string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateCookies(ctx, name)
}
