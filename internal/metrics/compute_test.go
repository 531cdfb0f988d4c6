package metrics

import (
	"math"
	"testing"

	"backtest-lab/internal/domain"
)

func TestComputeStddev_SampleFormula(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}

	// sum of squares 32, n-1 = 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, got)
	}

	if got := computeStddev([]float64{3}, 3); got != 0 {
		t.Errorf("single sample stddev should be 0, got %f", got)
	}
}

func TestComputeDrawdowns(t *testing.T) {
	values := []float64{100, 120, 90, 130, 65}
	got := computeDrawdowns(values)
	want := []float64{0, 0, 0.25, 0, 0.5}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("drawdown[%d]: expected %f, got %f", i, want[i], got[i])
		}
	}

	if got := computeMaxDrawdown(values); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected max drawdown 0.5, got %f", got)
	}
}

func TestComputeDrawdowns_SkipsNonFinite(t *testing.T) {
	got := computeDrawdowns([]float64{100, 80, math.NaN(), 100})
	want := []float64{0, 0.2, 0.2, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("drawdown[%d]: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestComputeMaxDrawdown_MonotonicIncrease(t *testing.T) {
	if got := computeMaxDrawdown([]float64{1, 2, 3, 4}); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := computeMaxDrawdown(nil); got != 0 {
		t.Errorf("expected 0 for empty path, got %f", got)
	}
}

func TestComputeReturns(t *testing.T) {
	got := computeReturns([]float64{100, 110, 99, 0, 50})
	want := []float64{0.1, -0.1, -1}
	if len(got) != len(want) {
		t.Fatalf("expected %d returns, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("return[%d]: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestComputeProfitFactor(t *testing.T) {
	tests := []struct {
		name    string
		profits []float64
		want    float64
	}{
		{"mixed", []float64{30, -10, 10, -10}, 2},
		{"only wins", []float64{5, 1}, math.Inf(1)},
		{"only losses", []float64{-5, -1}, 0},
		{"no trades", nil, 0},
		{"break-even only", []float64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeProfitFactor(tt.profits); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestComputeExposure(t *testing.T) {
	points := []domain.TimeSeriesPoint{
		{Positions: map[string]float64{}},
		{Positions: map[string]float64{"GOLD": 1}},
		{Positions: map[string]float64{"GOLD": 1, "SILVER": 2}},
		{},
	}
	if got := computeExposure(points); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
	if got := computeExposure(nil); got != 0 {
		t.Errorf("expected 0 for no points, got %f", got)
	}
}
