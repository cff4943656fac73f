package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type storeLookup interface {
	StoreBySubdomain(ctx context.Context, hostname string) (*livedatanow.Store, error)
}

type storeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	StoreCacheKey(slug string) string
}

// Service resolves the store serving a request.
type Service interface {
	Current(ctx context.Context, host string) (*livedatanow.Store, error)
	Default() livedatanow.Store
}

type service struct {
	lookup storeLookup
	cache  storeCache
	cfg    config.StoreConfig
	logg   *logger.Logger
}

// NewService builds the store resolver. cache may be nil.
func NewService(lookup storeLookup, cache storeCache, cfg config.StoreConfig, logg *logger.Logger) (Service, error) {
	if lookup == nil {
		return nil, fmt.Errorf("store lookup is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{lookup: lookup, cache: cache, cfg: cfg, logg: logg}, nil
}

// Current returns the store for host. Upstream failures fall back to the configured default store.
func (s *service) Current(ctx context.Context, host string) (*livedatanow.Store, error) {
	slug := SlugFromHost(host, s.cfg.RootDomain, s.cfg.DefaultSubdomain)
	ctx = s.logg.WithField(ctx, "store_slug", slug)

	if cached, ok := s.cached(ctx, slug); ok {
		return cached, nil
	}

	store, err := s.lookup.StoreBySubdomain(ctx, slug)
	if err != nil || store == nil || strings.TrimSpace(store.ID) == "" {
		if err != nil {
			s.logg.Error(ctx, "store.lookup_failed", err)
		} else {
			s.logg.Warn(ctx, "store.lookup_empty")
		}
		fallback := s.Default()
		return &fallback, nil
	}

	s.remember(ctx, slug, store)
	return store, nil
}

// Default is the store served when the upstream cannot resolve one.
func (s *service) Default() livedatanow.Store {
	return livedatanow.Store{
		ID:        s.cfg.DefaultStoreID,
		Name:      s.cfg.DefaultStoreName,
		Subdomain: s.cfg.DefaultSubdomain,
	}
}

func (s *service) cached(ctx context.Context, slug string) (*livedatanow.Store, bool) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.StoreCacheKey(slug))
	if err != nil {
		return nil, false
	}
	var store livedatanow.Store
	if err := json.Unmarshal([]byte(raw), &store); err != nil || store.ID == "" {
		return nil, false
	}
	return &store, true
}

func (s *service) remember(ctx context.Context, slug string, store *livedatanow.Store) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	encoded, err := json.Marshal(store)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.StoreCacheKey(slug), string(encoded), s.cfg.CacheTTL); err != nil {
		s.logg.Warn(ctx, "store.cache_write_failed")
	}
}
