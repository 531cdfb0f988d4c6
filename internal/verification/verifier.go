// Package verification re-executes a run and checks that the replay
// reproduces the stored result.
package verification

import (
	"context"
	"fmt"
	"math"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field path, e.g. "Trades[2].Profit"
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult is the outcome of verifying one run.
type VerificationResult struct {
	RunID       string
	Match       bool // true if all fields match
	Divergences []FieldDivergence
}

// Replayer re-executes a configured run. *simulation.Runner satisfies it.
type Replayer interface {
	RunAligned(ctx context.Context, aligned *domain.AlignedDataset, cfg domain.StrategyConfig, engineCfg backtest.Config) (*domain.Result, error)
}

// Verify replays stored with the same strategy and engine config over the
// same aligned data and compares the two results.
func Verify(
	ctx context.Context,
	r Replayer,
	aligned *domain.AlignedDataset,
	cfg domain.StrategyConfig,
	engineCfg backtest.Config,
	stored *domain.Result,
) (*VerificationResult, error) {
	replayed, err := r.RunAligned(ctx, aligned, cfg, engineCfg)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", stored.RunID, err)
	}

	divergences := CompareResults(stored, replayed)
	return &VerificationResult{
		RunID:       stored.RunID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// CompareResults compares two results and returns divergences.
// Money fields compare exactly, float64 fields within FloatTolerance.
func CompareResults(stored, replayed *domain.Result) []FieldDivergence {
	var d divergences

	d.exact("RunID", stored.RunID, replayed.RunID)
	d.exact("Strategy", stored.Strategy, replayed.Strategy)

	// Trades
	if len(stored.Trades) != len(replayed.Trades) {
		d.add("len(Trades)", len(stored.Trades), len(replayed.Trades))
	} else {
		for i := range stored.Trades {
			compareTrade(&d, fmt.Sprintf("Trades[%d]", i), stored.Trades[i], replayed.Trades[i])
		}
	}

	// Stats
	s, r := stored.Stats, replayed.Stats
	d.float("Stats.MaxDrawdown", s.MaxDrawdown, r.MaxDrawdown)
	d.float("Stats.AvgDrawdown", s.AvgDrawdown, r.AvgDrawdown)
	d.float("Stats.WinRate", s.WinRate, r.WinRate)
	d.float("Stats.ProfitFactor", s.ProfitFactor, r.ProfitFactor)
	d.float("Stats.Expectancy", s.Expectancy, r.Expectancy)
	d.float("Stats.Volatility", s.Volatility, r.Volatility)
	d.float("Stats.ExposureTime", s.ExposureTime, r.ExposureTime)
	d.exact("Stats.NumTrades", s.NumTrades, r.NumTrades)
	d.float("Stats.TotalReturn", s.TotalReturn, r.TotalReturn)
	d.float("Stats.FinalValue", s.FinalValue, r.FinalValue)
	d.float("Stats.Sharpe", s.Sharpe, r.Sharpe)

	// Benchmark
	d.exact("Benchmark.Asset", stored.Benchmark.Asset, replayed.Benchmark.Asset)
	d.float("Benchmark.Return", stored.Benchmark.Return, replayed.Benchmark.Return)
	d.float("Benchmark.MaxDrawdown", stored.Benchmark.MaxDrawdown, replayed.Benchmark.MaxDrawdown)

	// Time series: length plus every portfolio value
	if len(stored.TimeSeries) != len(replayed.TimeSeries) {
		d.add("len(TimeSeries)", len(stored.TimeSeries), len(replayed.TimeSeries))
	} else {
		for i := range stored.TimeSeries {
			a, b := stored.TimeSeries[i], replayed.TimeSeries[i]
			if !a.PortfolioValue.Equal(b.PortfolioValue) {
				d.add(fmt.Sprintf("TimeSeries[%d].PortfolioValue", i), a.PortfolioValue.String(), b.PortfolioValue.String())
			}
		}
	}

	d.exact("len(Diagnostics)", len(stored.Diagnostics), len(replayed.Diagnostics))

	return d
}

func compareTrade(d *divergences, path string, a, b domain.Trade) {
	d.exact(path+".ID", a.ID, b.ID)
	d.exact(path+".Asset", a.Asset, b.Asset)
	d.exact(path+".EntryTime", a.EntryTime, b.EntryTime)
	d.exact(path+".ExitTime", a.ExitTime, b.ExitTime)
	d.money(path+".EntryPrice", a.EntryPrice, b.EntryPrice)
	d.money(path+".ExitPrice", a.ExitPrice, b.ExitPrice)
	d.money(path+".Size", a.Size, b.Size)
	d.money(path+".Profit", a.Profit, b.Profit)
	d.exact(path+".Partial", a.Partial, b.Partial)
}

type divergences []FieldDivergence

func (d *divergences) add(field string, expected, actual interface{}) {
	*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
}

func (d *divergences) exact(field string, expected, actual interface{}) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) money(field string, expected, actual domain.Money) {
	if !expected.Equal(actual) {
		d.add(field, expected.String(), actual.String())
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		d.add(field, expected, actual)
	}
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN and infinities equal themselves.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= FloatTolerance
}
