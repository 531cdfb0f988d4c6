// Package alignment merges independently sampled asset histories onto one
// shared, forward-filled timeline.
package alignment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"backtest-lab/internal/domain"
)

// Tolerance is the default matching window: a sample within two hours of a
// timeline timestamp is treated as belonging to it.
const Tolerance int64 = 2 * 60 * 60 * 1000

// Alignment errors
var (
	ErrNoOverlap   = errors.New("no overlapping range across input series")
	ErrEmptySeries = errors.New("series has no samples")
)

// Align aligns series using the default Tolerance.
// Zero series produce an empty dataset and no error.
func Align(series []domain.AssetSeries) (*domain.AlignedDataset, error) {
	return AlignWithTolerance(series, Tolerance)
}

// AlignWithTolerance aligns series onto the union of their timestamps,
// restricted to [latestFirst - tolerance, earliestLast + tolerance].
//
// For every asset and timeline timestamp t, the first unconsumed sample with
// date >= t - tolerance is consumed when it lies within tolerance of t.
// Otherwise the last consumed values are carried forward (the asset's first
// known values before anything has been consumed).
func AlignWithTolerance(series []domain.AssetSeries, tolerance int64) (*domain.AlignedDataset, error) {
	if len(series) == 0 {
		return &domain.AlignedDataset{}, nil
	}

	for i := range series {
		if series[i].Len() == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptySeries, series[i].Name)
		}
	}

	timeline := buildTimeline(series, tolerance)
	if len(timeline) == 0 {
		return nil, ErrNoOverlap
	}

	aligned := &domain.AlignedDataset{
		Date:   timeline,
		Assets: make([]domain.AlignedSeries, len(series)),
	}
	for i := range series {
		aligned.Assets[i] = alignSeries(&series[i], timeline, tolerance)
	}

	return aligned, nil
}

// buildTimeline returns the sorted, deduplicated union of all timestamps that
// fall inside the common range widened by tolerance.
func buildTimeline(series []domain.AssetSeries, tolerance int64) []int64 {
	latestFirst := int64(math.MinInt64)
	earliestLast := int64(math.MaxInt64)
	for i := range series {
		s := &series[i]
		if first := s.Date[0]; first > latestFirst {
			latestFirst = first
		}
		if last := s.Date[s.Len()-1]; last < earliestLast {
			earliestLast = last
		}
	}

	lo := latestFirst - tolerance
	hi := earliestLast + tolerance

	seen := make(map[int64]struct{})
	var timeline []int64
	for i := range series {
		for _, d := range series[i].Date {
			if d < lo || d > hi {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			timeline = append(timeline, d)
		}
	}

	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i] < timeline[j]
	})
	return timeline
}

// sample is one OHLCV row with missing fields already substituted.
type sample struct {
	open, high, low, close, volume float64
}

func alignSeries(s *domain.AssetSeries, timeline []int64, tolerance int64) domain.AlignedSeries {
	n := len(timeline)
	out := domain.AlignedSeries{
		Name:   s.Name,
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}

	last := sampleAt(s, 0)
	cursor := 0
	count := s.Len()

	for k, t := range timeline {
		for cursor < count && s.Date[cursor] < t-tolerance {
			cursor++
		}

		if cursor < count && absDiff(s.Date[cursor], t) <= tolerance {
			last = sampleAt(s, cursor)
			cursor++
		}

		out.Open[k] = last.open
		out.High[k] = last.high
		out.Low[k] = last.low
		out.Close[k] = last.close
		out.Volume[k] = last.volume
	}

	return out
}

// sampleAt reads row i, substituting close for a missing open/high/low and
// zero for a missing volume.
func sampleAt(s *domain.AssetSeries, i int) sample {
	c := valueAt(s.Close, i)
	return sample{
		open:   orDefault(s.Open, i, c),
		high:   orDefault(s.High, i, c),
		low:    orDefault(s.Low, i, c),
		close:  c,
		volume: orDefault(s.Volume, i, 0),
	}
}

// valueAt returns col[i], or NaN when the column is absent or too short.
func valueAt(col []float64, i int) float64 {
	if i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

func orDefault(col []float64, i int, fallback float64) float64 {
	v := valueAt(col, i)
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
