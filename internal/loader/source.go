package loader

import (
	"context"
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
)

// ErrSeriesNotFound is returned by a Source that has no series under a name.
var ErrSeriesNotFound = errors.New("series not found")

// Source lists and fetches asset series by name.
type Source interface {
	// List returns the available series names, sorted.
	List(ctx context.Context) ([]string, error)
	// Fetch returns one series. Missing names wrap ErrSeriesNotFound.
	Fetch(ctx context.Context, name string) (domain.AssetSeries, error)
}

// LoadAll fetches the named series in order, or every listed series when names
// is empty. Names must be unique.
func LoadAll(ctx context.Context, src Source, names []string) ([]domain.AssetSeries, error) {
	if len(names) == 0 {
		listed, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list series: %w", err)
		}
		names = listed
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]domain.AssetSeries, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := src.Fetch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}
