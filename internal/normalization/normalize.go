// Package normalization rescales aligned prices and turns stored bars into
// asset series.
package normalization

import (
	"math"

	"backtest-lab/internal/domain"
)

// Normalize rescales every aligned asset so its first close is 100.
//
// Close uses base = close[0], or 1 when that is zero or not finite.
// Open, high and low each use their own first value as base, falling back to
// the close base. A nil column mirrors the normalized close.
// Normalize never fails and never modifies its input.
func Normalize(aligned *domain.AlignedDataset) domain.NormalizedDataset {
	out := make(domain.NormalizedDataset)
	if aligned == nil {
		return out
	}

	for i := range aligned.Assets {
		a := &aligned.Assets[i]
		closeBase := baseOf(a.Close, 1)
		closes := rescale(a.Close, closeBase)

		out[a.Name] = domain.NormalizedSeries{
			Open:  rescaleOr(a.Open, closeBase, closes),
			High:  rescaleOr(a.High, closeBase, closes),
			Low:   rescaleOr(a.Low, closeBase, closes),
			Close: closes,
		}
	}

	return out
}

func baseOf(col []float64, fallback float64) float64 {
	if len(col) == 0 {
		return fallback
	}
	b := col[0]
	if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return fallback
	}
	return b
}

func rescale(col []float64, base float64) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = v / base * 100
	}
	return out
}

func rescaleOr(col []float64, fallbackBase float64, mirror []float64) []float64 {
	if col == nil {
		cp := make([]float64, len(mirror))
		copy(cp, mirror)
		return cp
	}
	return rescale(col, baseOf(col, fallbackBase))
}
