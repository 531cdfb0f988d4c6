package verification

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/alignment"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/simulation"
)

const day = int64(86_400_000)

func testAligned(t *testing.T) *domain.AlignedDataset {
	t.Helper()
	series := []domain.AssetSeries{
		daily("GOLD", 100, 90, 120, 130),
		daily("SILVER", 10, 12, 11, 13),
	}
	aligned, err := alignment.Align(series)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	return aligned
}

func daily(name string, closes ...float64) domain.AssetSeries {
	s := domain.AssetSeries{Name: name}
	for i, c := range closes {
		s.Date = append(s.Date, int64(i)*day)
		s.Open = append(s.Open, c)
		s.High = append(s.High, c)
		s.Low = append(s.Low, c)
		s.Close = append(s.Close, c)
		s.Volume = append(s.Volume, 0)
	}
	return s
}

func TestVerify_ReplayMatches(t *testing.T) {
	ctx := context.Background()
	runner := simulation.NewRunner(simulation.RunnerOptions{})
	aligned := testAligned(t)
	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeCrossover}
	engineCfg := backtest.Config{TradeOnClose: true, Commission: 0.001}

	stored, err := runner.RunAligned(ctx, aligned, cfg, engineCfg)
	if err != nil {
		t.Fatalf("RunAligned failed: %v", err)
	}

	result, err := Verify(ctx, runner, aligned, cfg, engineCfg, stored)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Match {
		t.Errorf("expected match, got divergences: %+v", result.Divergences)
	}
	if result.RunID != stored.RunID {
		t.Errorf("RunID = %s, want %s", result.RunID, stored.RunID)
	}
}

func TestVerify_DetectsDifferentConfig(t *testing.T) {
	ctx := context.Background()
	runner := simulation.NewRunner(simulation.RunnerOptions{})
	aligned := testAligned(t)
	cfg := domain.StrategyConfig{StrategyType: domain.StrategyTypeBuyAndHold, Asset: "GOLD"}

	stored, err := runner.RunAligned(ctx, aligned, cfg, backtest.Config{TradeOnClose: true})
	if err != nil {
		t.Fatalf("RunAligned failed: %v", err)
	}

	// Replaying with a commission changes the run ID and the final value.
	result, err := Verify(ctx, runner, aligned, cfg, backtest.Config{TradeOnClose: true, Commission: 0.01}, stored)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Match {
		t.Fatal("expected divergences")
	}

	fields := make(map[string]bool)
	for _, d := range result.Divergences {
		fields[d.Field] = true
	}
	for _, want := range []string{"RunID", "Stats.FinalValue"} {
		if !fields[want] {
			t.Errorf("expected divergence on %s, got %+v", want, result.Divergences)
		}
	}
}

type failingReplayer struct{}

func (failingReplayer) RunAligned(context.Context, *domain.AlignedDataset, domain.StrategyConfig, backtest.Config) (*domain.Result, error) {
	return nil, errors.New("boom")
}

func TestVerify_ReplayError(t *testing.T) {
	_, err := Verify(context.Background(), failingReplayer{}, nil, domain.StrategyConfig{}, backtest.Config{}, &domain.Result{RunID: "r1"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCompareResults_Trades(t *testing.T) {
	trade := domain.Trade{
		ID:         "t1",
		Asset:      "GOLD",
		EntryTime:  0,
		ExitTime:   day,
		EntryPrice: decimal.NewFromInt(100),
		ExitPrice:  decimal.NewFromInt(110),
		Size:       decimal.NewFromInt(2),
		Profit:     decimal.NewFromInt(20),
	}
	stored := &domain.Result{RunID: "r1", Trades: []domain.Trade{trade}}

	same := &domain.Result{RunID: "r1", Trades: []domain.Trade{trade}}
	// Same value, different scale.
	same.Trades[0].Profit = decimal.RequireFromString("20.000")
	if d := CompareResults(stored, same); len(d) != 0 {
		t.Errorf("expected no divergences, got %+v", d)
	}

	changed := &domain.Result{RunID: "r1", Trades: []domain.Trade{trade}}
	changed.Trades[0].Profit = decimal.NewFromInt(21)
	d := CompareResults(stored, changed)
	if len(d) != 1 || d[0].Field != "Trades[0].Profit" {
		t.Errorf("expected one Profit divergence, got %+v", d)
	}

	missing := &domain.Result{RunID: "r1"}
	d = CompareResults(stored, missing)
	if len(d) != 1 || d[0].Field != "len(Trades)" {
		t.Errorf("expected trade count divergence, got %+v", d)
	}
}

func TestCompareResults_NonFiniteStats(t *testing.T) {
	a := &domain.Result{Stats: domain.Stats{ProfitFactor: math.Inf(1), Sharpe: math.NaN()}}
	b := &domain.Result{Stats: domain.Stats{ProfitFactor: math.Inf(1), Sharpe: math.NaN()}}
	if d := CompareResults(a, b); len(d) != 0 {
		t.Errorf("non-finite stats should compare equal, got %+v", d)
	}

	b.Stats.Sharpe = 0
	if d := CompareResults(a, b); len(d) != 1 {
		t.Errorf("expected one divergence, got %+v", d)
	}
}

func TestFloatEquals(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{1.0, 1.0, true},
		{1.0, 1.0 + 1e-8, true},
		{1.0, 1.0 + 1e-6, false},
		{math.Inf(1), math.Inf(1), true},
		{math.Inf(1), math.Inf(-1), false},
		{math.NaN(), math.NaN(), true},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		if got := floatEquals(tt.a, tt.b); got != tt.want {
			t.Errorf("floatEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
