package loader

import (
	"context"
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/normalization"
	"backtest-lab/internal/storage"
)

// StoreSource reads series from a bar store.
type StoreSource struct {
	Store storage.BarStore
}

var _ Source = (*StoreSource)(nil)

// List returns the stored symbols.
func (s *StoreSource) List(ctx context.Context) ([]string, error) {
	return s.Store.Symbols(ctx)
}

// Fetch rebuilds a series from the symbol's bars.
func (s *StoreSource) Fetch(ctx context.Context, name string) (domain.AssetSeries, error) {
	bars, err := s.Store.GetBySymbol(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.AssetSeries{}, fmt.Errorf("%s: %w", name, ErrSeriesNotFound)
		}
		return domain.AssetSeries{}, err
	}
	return normalization.SeriesFromBars(name, bars), nil
}

// Save writes a series into store as bars.
func Save(ctx context.Context, store storage.BarStore, s *domain.AssetSeries) error {
	if err := store.InsertBulk(ctx, normalization.BarsFromSeries(s)); err != nil {
		return fmt.Errorf("save %s: %w", s.Name, err)
	}
	return nil
}
