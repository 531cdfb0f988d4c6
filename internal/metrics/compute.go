package metrics

import (
	"math"

	"backtest-lab/internal/domain"
)

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean of values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeDrawdowns returns (peak - value) / peak for every value, where peak
// is the running maximum. Values must be in chronological order.
// Non-finite values repeat the previous drawdown.
func computeDrawdowns(values []float64) []float64 {
	out := make([]float64, len(values))
	peak := math.Inf(-1)
	prev := 0.0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = prev
			continue
		}
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak
		}
		out[i] = dd
		prev = dd
	}
	return out
}

// computeMaxDrawdown calculates worst relative peak-to-trough decline.
// Values must be in chronological order.
func computeMaxDrawdown(values []float64) float64 {
	maxDrawdown := 0.0
	for _, dd := range computeDrawdowns(values) {
		if dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeReturns returns per-step simple returns v[i]/v[i-1] - 1.
// Steps whose previous value is not positive are skipped.
func computeReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 || math.IsNaN(prev) || math.IsInf(prev, 0) || math.IsNaN(values[i]) {
			continue
		}
		returns = append(returns, values[i]/prev-1)
	}
	return returns
}

// computeProfitFactor calculates gross profit / |gross loss|.
// Returns +Inf when there are wins and no losses, 0 when there are no wins.
func computeProfitFactor(profits []float64) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, p := range profits {
		switch {
		case p > 0:
			grossProfit += p
		case p < 0:
			grossLoss -= p
		}
	}
	if grossProfit == 0 {
		return 0
	}
	if grossLoss == 0 {
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

// computeExposure is the share of points holding any open position.
func computeExposure(points []domain.TimeSeriesPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	exposed := 0
	for _, p := range points {
		if len(p.Positions) > 0 {
			exposed++
		}
	}
	return float64(exposed) / float64(len(points))
}
