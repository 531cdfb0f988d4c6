package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"backtest-lab/internal/diagnostics"
	"backtest-lab/internal/domain"
)

// DirSource reads "<name>.csv" files from a local directory.
type DirSource struct {
	Dir  string
	Sink diagnostics.Sink
}

// NewDirSource creates a DirSource. A nil sink discards loader warnings.
func NewDirSource(dir string, sink diagnostics.Sink) *DirSource {
	return &DirSource{Dir: dir, Sink: sink}
}

var _ Source = (*DirSource)(nil)

// List returns the base names of all .csv files in the directory.
func (d *DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", d.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(names)
	return names, nil
}

// Fetch parses "<dir>/<name>.csv".
func (d *DirSource) Fetch(_ context.Context, name string) (domain.AssetSeries, error) {
	path := filepath.Join(d.Dir, name+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.AssetSeries{}, fmt.Errorf("%s: %w", path, ErrSeriesNotFound)
		}
		return domain.AssetSeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ParseCSV(f, name, d.Sink)
}
