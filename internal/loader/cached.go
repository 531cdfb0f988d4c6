package loader

import (
	"context"
	"errors"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/normalization"
	"backtest-lab/internal/storage"
)

// CachedSource is a read-through cache in front of another Source.
// Cache failures never fail a fetch; they go to OnCacheError when set.
type CachedSource struct {
	Source       Source
	Cache        storage.BarStore
	OnCacheError func(name string, err error)
}

var _ Source = (*CachedSource)(nil)

// List delegates to the backing source.
func (c *CachedSource) List(ctx context.Context) ([]string, error) {
	return c.Source.List(ctx)
}

// Fetch serves from the cache and fills it on a miss.
func (c *CachedSource) Fetch(ctx context.Context, name string) (domain.AssetSeries, error) {
	bars, err := c.Cache.GetBySymbol(ctx, name)
	if err == nil {
		return normalization.SeriesFromBars(name, bars), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		c.cacheError(name, err)
	}

	s, err := c.Source.Fetch(ctx, name)
	if err != nil {
		return domain.AssetSeries{}, err
	}
	if err := Save(ctx, c.Cache, &s); err != nil {
		c.cacheError(name, err)
	}
	return s, nil
}

func (c *CachedSource) cacheError(name string, err error) {
	if c.OnCacheError != nil {
		c.OnCacheError(name, err)
	}
}
