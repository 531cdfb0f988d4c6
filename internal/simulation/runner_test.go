package simulation

import (
	"context"
	"errors"
	"math"
	"testing"

	"backtest-lab/internal/alignment"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/diagnostics"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/loader"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/strategy"
)

const day = int64(86_400_000)

// makeSeries builds a close-only series sampled daily from startMs.
func makeSeries(name string, closes []float64, startMs int64) domain.AssetSeries {
	s := domain.AssetSeries{Name: name}
	for i, c := range closes {
		s.Date = append(s.Date, startMs+int64(i)*day)
		s.Open = append(s.Open, c)
		s.High = append(s.High, c)
		s.Low = append(s.Low, c)
		s.Close = append(s.Close, c)
		s.Volume = append(s.Volume, 0)
	}
	return s
}

func newTestRunner(t *testing.T, series ...domain.AssetSeries) *Runner {
	t.Helper()
	ctx := context.Background()
	store := memory.NewBarStore()
	for i := range series {
		if err := loader.Save(ctx, store, &series[i]); err != nil {
			t.Fatalf("save %s: %v", series[i].Name, err)
		}
	}
	return NewRunner(RunnerOptions{Source: &loader.StoreSource{Store: store}})
}

func ptrFloat(f float64) *float64 {
	return &f
}

func TestRunner_Run_BuyAndHold(t *testing.T) {
	runner := newTestRunner(t,
		makeSeries("GOLD", []float64{100, 110, 121}, 0),
		makeSeries("SILVER", []float64{10, 10, 10}, 0),
	)

	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeBuyAndHold, Asset: "GOLD"}
	res, err := runner.Run(context.Background(), nil, cfg, backtest.Config{TradeOnClose: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Strategy != "buy_and_hold_GOLD" {
		t.Errorf("expected strategy buy_and_hold_GOLD, got %s", res.Strategy)
	}
	if len(res.TimeSeries) != 3 {
		t.Fatalf("expected 3 points, got %d", len(res.TimeSeries))
	}
	// 95 units bought at 100 with 9500, marked at 121 on the last bar.
	if math.Abs(res.Stats.FinalValue-11995) > 1e-6 {
		t.Errorf("expected final value 11995, got %f", res.Stats.FinalValue)
	}
	if res.Benchmark.Asset != "GOLD" {
		t.Errorf("expected benchmark GOLD, got %s", res.Benchmark.Asset)
	}
}

func TestRunner_Run_Deterministic(t *testing.T) {
	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeCrossover, LegFraction: ptrFloat(0.2)}

	var first *domain.Result
	for run := 0; run < 5; run++ {
		runner := newTestRunner(t,
			makeSeries("A", []float64{100, 90, 120, 80, 130}, 0),
			makeSeries("B", []float64{100, 110, 100, 115, 90}, 0),
		)
		res, err := runner.Run(context.Background(), []string{"A", "B"}, cfg, backtest.Config{Normalize: true, TradeOnClose: true})
		if err != nil {
			t.Fatalf("Run %d: Run failed: %v", run, err)
		}
		if first == nil {
			first = res
			continue
		}
		if res.RunID != first.RunID {
			t.Errorf("Run %d: run id changed: %s vs %s", run, res.RunID, first.RunID)
		}
		if res.Stats != first.Stats {
			t.Errorf("Run %d: stats changed: %+v vs %+v", run, res.Stats, first.Stats)
		}
		if len(res.Trades) != len(first.Trades) {
			t.Errorf("Run %d: trade count changed: %d vs %d", run, len(res.Trades), len(first.Trades))
		}
	}
}

func TestRunner_Run_UnknownStrategy(t *testing.T) {
	runner := newTestRunner(t, makeSeries("A", []float64{1, 2}, 0))

	_, err := runner.Run(context.Background(), nil, domain.StrategyConfig{StrategyType: "MARTINGALE"}, backtest.Config{})
	if !errors.Is(err, strategy.ErrUnknownStrategyType) {
		t.Errorf("expected ErrUnknownStrategyType, got %v", err)
	}
}

func TestRunner_Run_MissingAsset(t *testing.T) {
	runner := newTestRunner(t, makeSeries("A", []float64{1, 2}, 0))

	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeBuyAndHold, Asset: "A"}
	_, err := runner.Run(context.Background(), []string{"A", "Z"}, cfg, backtest.Config{})
	if !errors.Is(err, loader.ErrSeriesNotFound) {
		t.Errorf("expected ErrSeriesNotFound, got %v", err)
	}
}

func TestRunner_Load_NoOverlap(t *testing.T) {
	runner := newTestRunner(t,
		makeSeries("OLD", []float64{1, 2}, 0),
		makeSeries("NEW", []float64{1, 2}, 100*day),
	)

	_, err := runner.Load(context.Background(), nil)
	if !errors.Is(err, alignment.ErrNoOverlap) {
		t.Errorf("expected ErrNoOverlap, got %v", err)
	}
}

func TestRunner_NoSource(t *testing.T) {
	_, err := NewRunner(RunnerOptions{}).Load(context.Background(), nil)
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestRunner_EngineOptionsApply(t *testing.T) {
	collector := diagnostics.NewCollector()
	store := memory.NewBarStore()
	s := makeSeries("A", []float64{10, 11}, 0)
	if err := loader.Save(context.Background(), store, &s); err != nil {
		t.Fatalf("save: %v", err)
	}
	runner := NewRunner(RunnerOptions{
		Source:        &loader.StoreSource{Store: store},
		EngineOptions: []backtest.Option{backtest.WithSink(collector)},
	})

	// Crossover needs normalized prices; running without them is reported.
	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeCrossover}
	if _, err := runner.Run(context.Background(), nil, cfg, backtest.Config{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := collector.ByCode(domain.CodeNormalizationRequired); len(got) != 1 {
		t.Errorf("expected 1 NORMALIZATION_REQUIRED diagnostic, got %d", len(got))
	}
}
