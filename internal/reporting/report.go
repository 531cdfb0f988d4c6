package reporting

import (
	"time"

	"backtest-lab/internal/domain"
)

// Report is the rendered-agnostic summary of one or more backtest runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int
	FailedCount int

	DataSummary DataSummary

	// Runs in the order they were handed to the generator.
	Runs     []RunRow
	Failures []FailureRow

	// One row per benchmarked asset.
	Benchmarks []BenchmarkRow

	// Diagnostic counts across all runs, sorted by code.
	Diagnostics []DiagnosticRow

	// Trades of the single successful run, empty for sweeps.
	Trades []domain.Trade
}

// DataSummary describes the aligned timeline the runs shared.
type DataSummary struct {
	Assets         []string
	Bars           int
	DateRangeStart int64
	DateRangeEnd   int64
}

// RunRow is one successful run.
type RunRow struct {
	Label    string
	RunID    string
	Strategy string
	Stats    domain.Stats

	BenchmarkAsset  string
	BenchmarkReturn float64
	ExcessReturn    float64 // TotalReturn - BenchmarkReturn
}

// FailureRow is one run that returned an error.
type FailureRow struct {
	Label string
	Error string
}

// BenchmarkRow is the buy-and-hold reference for one asset.
type BenchmarkRow struct {
	Asset       string
	Return      float64
	MaxDrawdown float64
}

// DiagnosticRow counts one diagnostic code.
type DiagnosticRow struct {
	Code  domain.Code
	Level domain.Level
	Count int
}
