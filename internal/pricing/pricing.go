// Package pricing resolves per-symbol asset prices used to value holdings.
package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/defi-dashboard/internal/config"
	"github.com/defi-dashboard/internal/storage"
	"github.com/shopspring/decimal"
)

// Source resolves the unit price for an asset symbol
type Source interface {
	PriceFor(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StaticSource serves configured placeholder prices. Unknown symbols price at
// zero rather than failing, so new assets surface in holdings immediately and
// pick up a value once configured.
type StaticSource struct {
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a static price source from configuration
func NewStaticSource(cfg *config.PricingConfig) *StaticSource {
	prices := make(map[string]decimal.Decimal, len(cfg.Prices))
	for symbol, price := range cfg.Prices {
		prices[strings.ToUpper(symbol)] = price
	}
	return &StaticSource{prices: prices}
}

// PriceFor returns the configured price for a symbol, zero when unknown
func (s *StaticSource) PriceFor(_ context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := s.prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, nil
	}
	return price, nil
}

// CachedSource decorates another source with a Redis read-through cache.
// Cache failures degrade to the underlying source.
type CachedSource struct {
	next  Source
	cache *storage.CacheService
}

// NewCachedSource creates a caching decorator around a price source
func NewCachedSource(next Source, cache *storage.CacheService) *CachedSource {
	return &CachedSource{next: next, cache: cache}
}

// PriceFor returns a cached price, falling back to the underlying source
func (s *CachedSource) PriceFor(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := fmt.Sprintf("price:%s", strings.ToUpper(symbol))

	var cached string
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		if price, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return price, nil
		}
	}

	price, err := s.next.PriceFor(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	// Best effort; a failed cache write must not fail the lookup
	_ = s.cache.Set(ctx, key, price.String())

	return price, nil
}
