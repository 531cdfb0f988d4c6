package alignment

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
)

const (
	hour = int64(60 * 60 * 1000)
	day  = 24 * hour
)

func closeOnly(name string, dates []int64, closes []float64) domain.AssetSeries {
	return domain.AssetSeries{Name: name, Date: dates, Close: closes}
}

func TestAlign_EmptyInput(t *testing.T) {
	aligned, err := Align(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, aligned.Len())
	assert.Empty(t, aligned.Assets)
}

func TestAlign_EmptySeries(t *testing.T) {
	_, err := Align([]domain.AssetSeries{
		closeOnly("A", []int64{0}, []float64{1}),
		closeOnly("B", nil, nil),
	})
	assert.True(t, errors.Is(err, ErrEmptySeries))
}

func TestAlign_NoOverlap(t *testing.T) {
	_, err := Align([]domain.AssetSeries{
		closeOnly("A", []int64{0, day}, []float64{1, 2}),
		closeOnly("B", []int64{10 * day, 11 * day}, []float64{1, 2}),
	})
	assert.ErrorIs(t, err, ErrNoOverlap)
}

func TestAlign_LengthInvariant(t *testing.T) {
	series := []domain.AssetSeries{
		closeOnly("A", []int64{0, day, 2 * day, 3 * day, 4 * day}, []float64{1, 2, 3, 4, 5}),
		closeOnly("B", []int64{day, 3 * day, 5 * day}, []float64{10, 30, 50}),
		closeOnly("C", []int64{-day, day + 30*60*1000, 2 * day, 3 * day}, []float64{7, 8, 9, 10}),
	}

	aligned, err := Align(series)
	require.NoError(t, err)

	// latestFirst = day, earliestLast = 3*day; window [day-2h, 3*day+2h]
	want := []int64{day, day + 30*60*1000, 2 * day, 3 * day}
	assert.Equal(t, want, aligned.Date)

	for _, a := range aligned.Assets {
		assert.Len(t, a.Open, len(want), a.Name)
		assert.Len(t, a.High, len(want), a.Name)
		assert.Len(t, a.Low, len(want), a.Name)
		assert.Len(t, a.Close, len(want), a.Name)
		assert.Len(t, a.Volume, len(want), a.Name)
	}
}

func TestAlign_ForwardFill(t *testing.T) {
	series := []domain.AssetSeries{
		closeOnly("A", []int64{0, day, 2 * day, 3 * day}, []float64{1, 2, 3, 4}),
		closeOnly("B", []int64{0, 2 * day, 3 * day}, []float64{10, 30, 40}),
	}

	aligned, err := Align(series)
	require.NoError(t, err)
	require.Equal(t, []int64{0, day, 2 * day, 3 * day}, aligned.Date)

	b, ok := aligned.Asset("B")
	require.True(t, ok)
	// day has no B sample within tolerance: carries the bar-0 value
	assert.Equal(t, []float64{10, 10, 30, 40}, b.Close)

	a, _ := aligned.Asset("A")
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Close)
}

func TestAlign_ForwardFillBeforeFirstConsumed(t *testing.T) {
	// B starts one hour after A; the first timeline stamp still matches B's
	// first sample within tolerance. A later gap carries the first-known value.
	series := []domain.AssetSeries{
		closeOnly("A", []int64{0, day}, []float64{1, 2}),
		closeOnly("B", []int64{hour, day + hour}, []float64{5, 6}),
	}

	aligned, err := Align(series)
	require.NoError(t, err)
	require.Equal(t, []int64{0, hour, day, day + hour}, aligned.Date)

	a, _ := aligned.Asset("A")
	b, _ := aligned.Asset("B")
	assert.Equal(t, []float64{1, 1, 2, 2}, a.Close)
	assert.Equal(t, []float64{5, 5, 6, 6}, b.Close)
}

func TestAlign_FirstKnownValueWhenNothingConsumed(t *testing.T) {
	// With zero tolerance A has no sample at 3h and nothing consumed yet.
	series := []domain.AssetSeries{
		closeOnly("A", []int64{0, 2 * hour, 4 * hour, day}, []float64{1, 2, 3, 4}),
		closeOnly("B", []int64{3 * hour, day}, []float64{50, 60}),
	}

	aligned, err := AlignWithTolerance(series, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{3 * hour, 4 * hour, day}, aligned.Date)

	a, _ := aligned.Asset("A")
	b, _ := aligned.Asset("B")
	assert.Equal(t, []float64{1, 3, 4}, a.Close)
	assert.Equal(t, []float64{50, 50, 60}, b.Close)
}

func TestAlign_MissingColumnsSubstituted(t *testing.T) {
	nan := math.NaN()
	series := []domain.AssetSeries{{
		Name:   "A",
		Date:   []int64{0, day},
		Open:   []float64{nan, 1.5},
		High:   nil,
		Low:    []float64{0.9, nan},
		Close:  []float64{1, 2},
		Volume: nil,
	}}

	aligned, err := Align(series)
	require.NoError(t, err)

	a := aligned.Assets[0]
	assert.Equal(t, []float64{1, 1.5}, a.Open)
	assert.Equal(t, []float64{1, 2}, a.High)
	assert.Equal(t, []float64{0.9, 2}, a.Low)
	assert.Equal(t, []float64{0, 0}, a.Volume)
}

func TestAlign_DeterministicAndInputUntouched(t *testing.T) {
	series := []domain.AssetSeries{
		closeOnly("A", []int64{0, day, 2 * day}, []float64{1, 2, 3}),
		closeOnly("B", []int64{0, 2 * day}, []float64{4, 5}),
	}

	first, err := Align(series)
	require.NoError(t, err)
	second, err := Align(series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []float64{4, 5}, series[1].Close)
}
