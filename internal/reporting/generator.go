package reporting

import (
	"sort"
	"time"

	"backtest-lab/internal/domain"
)

// Run is one labelled outcome fed to the generator. Exactly one of Result
// and Err is set.
type Run struct {
	Label  string
	Result *domain.Result
	Err    error
}

// Generator produces reports from run results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report for runs over the aligned dataset. aligned may be
// nil, in which case the data summary stays empty.
func (g *Generator) Generate(aligned *domain.AlignedDataset, runs []Run) *Report {
	report := &Report{
		GeneratedAt: g.now(),
		RunCount:    len(runs),
		DataSummary: summarizeData(aligned),
	}

	benchmarks := make(map[string]BenchmarkRow)
	diagnostics := make(map[domain.Code]*DiagnosticRow)
	var succeeded []*domain.Result

	for _, run := range runs {
		if run.Err != nil || run.Result == nil {
			msg := "no result"
			if run.Err != nil {
				msg = run.Err.Error()
			}
			report.Failures = append(report.Failures, FailureRow{Label: run.Label, Error: msg})
			continue
		}

		res := run.Result
		succeeded = append(succeeded, res)
		report.Runs = append(report.Runs, RunRow{
			Label:           labelFor(run),
			RunID:           res.RunID,
			Strategy:        res.Strategy,
			Stats:           res.Stats,
			BenchmarkAsset:  res.Benchmark.Asset,
			BenchmarkReturn: res.Benchmark.Return,
			ExcessReturn:    res.Stats.TotalReturn - res.Benchmark.Return,
		})

		if res.Benchmark.Asset != "" {
			benchmarks[res.Benchmark.Asset] = BenchmarkRow{
				Asset:       res.Benchmark.Asset,
				Return:      res.Benchmark.Return,
				MaxDrawdown: res.Benchmark.MaxDrawdown,
			}
		}

		for _, d := range res.Diagnostics {
			row, ok := diagnostics[d.Code]
			if !ok {
				row = &DiagnosticRow{Code: d.Code, Level: d.Level}
				diagnostics[d.Code] = row
			}
			row.Count++
		}
	}
	report.FailedCount = len(report.Failures)

	for _, b := range benchmarks {
		report.Benchmarks = append(report.Benchmarks, b)
	}
	sort.Slice(report.Benchmarks, func(i, j int) bool {
		return report.Benchmarks[i].Asset < report.Benchmarks[j].Asset
	})

	for _, d := range diagnostics {
		report.Diagnostics = append(report.Diagnostics, *d)
	}
	sort.Slice(report.Diagnostics, func(i, j int) bool {
		return report.Diagnostics[i].Code < report.Diagnostics[j].Code
	})

	if len(succeeded) == 1 {
		report.Trades = succeeded[0].Trades
	}

	return report
}

func summarizeData(aligned *domain.AlignedDataset) DataSummary {
	if aligned.Len() == 0 {
		return DataSummary{}
	}
	return DataSummary{
		Assets:         aligned.Names(),
		Bars:           aligned.Len(),
		DateRangeStart: aligned.Date[0],
		DateRangeEnd:   aligned.Date[aligned.Len()-1],
	}
}

func labelFor(run Run) string {
	if run.Label != "" {
		return run.Label
	}
	return run.Result.Strategy
}
