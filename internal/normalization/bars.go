package normalization

import (
	"math"
	"sort"

	"backtest-lab/internal/domain"
)

// SortBars orders bars by (symbol ASC, timestamp_ms ASC).
// This provides deterministic ordering independent of the store.
func SortBars(bars []domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return compareBars(&bars[i], &bars[j]) < 0
	})
}

// compareBars returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareBars(a, b *domain.Bar) int {
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	return 0
}

// SeriesFromBars builds one asset series from stored bars of a single symbol.
// Bars are sorted by timestamp first.
//
// Aggregation for same timestamp_ms:
//   - open = FIRST(open)
//   - high = MAX(high), low = MIN(low)
//   - close = LAST(close)
//   - volume = SUM(volume)
func SeriesFromBars(symbol string, bars []domain.Bar) domain.AssetSeries {
	sorted := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Symbol == symbol || b.Symbol == "" {
			sorted = append(sorted, b)
		}
	}
	SortBars(sorted)

	s := domain.AssetSeries{Name: symbol}
	for _, b := range sorted {
		n := s.Len()
		if n > 0 && s.Date[n-1] == b.TimestampMs {
			last := n - 1
			s.High[last] = maxKnown(s.High[last], b.High)
			s.Low[last] = minKnown(s.Low[last], b.Low)
			s.Close[last] = b.Close
			s.Volume[last] = sumKnown(s.Volume[last], b.Volume)
			continue
		}

		s.Date = append(s.Date, b.TimestampMs)
		s.Open = append(s.Open, b.Open)
		s.High = append(s.High, b.High)
		s.Low = append(s.Low, b.Low)
		s.Close = append(s.Close, b.Close)
		s.Volume = append(s.Volume, b.Volume)
	}

	return s
}

// BarsFromSeries flattens a series into bars for persistence.
func BarsFromSeries(s *domain.AssetSeries) []domain.Bar {
	bars := make([]domain.Bar, s.Len())
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:      s.Name,
			TimestampMs: s.Date[i],
			Open:        column(s.Open, i),
			High:        column(s.High, i),
			Low:         column(s.Low, i),
			Close:       column(s.Close, i),
			Volume:      column(s.Volume, i),
		}
	}
	return bars
}

func column(col []float64, i int) float64 {
	if i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

func maxKnown(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Max(a, b)
}

func minKnown(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Min(a, b)
}

func sumKnown(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return a + b
}
