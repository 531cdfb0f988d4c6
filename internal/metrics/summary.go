// Package metrics derives performance statistics from a run's portfolio
// trajectory and trade ledger.
package metrics

import (
	"backtest-lab/internal/domain"
	"backtest-lab/internal/lookup"
)

// Summarize computes run statistics.
// points must be in chronological order; cash0 is the starting cash.
// An empty run summarizes to zero stats with FinalValue = cash0.
func Summarize(points []domain.TimeSeriesPoint, trades []domain.Trade, cash0 float64) domain.Stats {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.PortfolioValue.InexactFloat64()
	}

	profits := make([]float64, len(trades))
	wins := 0
	for i, t := range trades {
		profits[i] = t.Profit.InexactFloat64()
		if profits[i] > 0 {
			wins++
		}
	}

	returns := computeReturns(values)
	meanReturn := computeMean(returns)
	volatility := computeStddev(returns, meanReturn)

	stats := domain.Stats{
		MaxDrawdown:  computeMaxDrawdown(values),
		AvgDrawdown:  computeMean(computeDrawdowns(values)),
		WinRate:      computeWinRate(wins, len(trades)),
		ProfitFactor: computeProfitFactor(profits),
		Expectancy:   computeMean(profits),
		Volatility:   volatility,
		ExposureTime: computeExposure(points),
		NumTrades:    len(trades),
		FinalValue:   cash0,
	}

	if len(values) > 0 {
		stats.FinalValue = values[len(values)-1]
	}
	if cash0 > 0 {
		stats.TotalReturn = stats.FinalValue/cash0 - 1
	}
	if volatility > 0 {
		stats.Sharpe = meanReturn / volatility
	}

	return stats
}

// ComputeBenchmark measures buying and holding asset over the whole timeline.
// The entry mirrors how the engine fills a bar-0 buy: bar 0's close when
// tradeOnClose is set, otherwise bar 1's open. Missing asset or prices yield a
// zero benchmark for that asset.
func ComputeBenchmark(aligned *domain.AlignedDataset, asset string, tradeOnClose bool) domain.Benchmark {
	bench := domain.Benchmark{Asset: asset}

	n := aligned.Len()
	if n == 0 {
		return bench
	}

	entryBar := 0
	entry, err := lookup.CloseAt(aligned, asset, 0)
	if !tradeOnClose && n > 1 {
		entryBar = 1
		entry, err = lookup.OpenAt(aligned, asset, 1)
	}
	if err != nil {
		return bench
	}

	exit, err := lookup.CloseAt(aligned, asset, n-1)
	if err != nil {
		return bench
	}

	path := []float64{entry}
	for i := entryBar; i < n; i++ {
		if c, err := lookup.CloseAt(aligned, asset, i); err == nil {
			path = append(path, c)
		}
	}

	bench.Return = exit/entry - 1
	bench.MaxDrawdown = computeMaxDrawdown(path)
	return bench
}
