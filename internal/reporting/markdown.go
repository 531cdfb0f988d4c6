package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Failed: %d\n\n", r.RunCount, r.FailedCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	if r.DataSummary.Bars > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Assets | %s |\n", strings.Join(r.DataSummary.Assets, ", ")))
		sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.DataSummary.Bars))
		sb.WriteString(fmt.Sprintf("| Start | %s |\n", formatDate(r.DataSummary.DateRangeStart)))
		sb.WriteString(fmt.Sprintf("| End | %s |\n", formatDate(r.DataSummary.DateRangeEnd)))
	} else {
		sb.WriteString("No data summary available.\n")
	}
	sb.WriteString("\n")

	// Results
	sb.WriteString("## Results\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Strategy | Trades | Return | Final | MaxDD | WinRate | ProfitFactor | Sharpe | Exposure | Benchmark | Excess |\n")
		sb.WriteString("|-----|----------|--------|--------|-------|-------|---------|--------------|--------|----------|-----------|--------|\n")
		for _, run := range r.Runs {
			s := run.Stats
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %.2f | %s | %s | %s | %s | %s | %s | %s |\n",
				run.Label, run.Strategy, s.NumTrades,
				formatPct(s.TotalReturn), s.FinalValue, formatPct(s.MaxDrawdown),
				formatPct(s.WinRate), formatFloat(s.ProfitFactor), formatFloat(s.Sharpe),
				formatPct(s.ExposureTime), formatPct(run.BenchmarkReturn), formatPct(run.ExcessReturn)))
		}
	} else {
		sb.WriteString("No results available.\n")
	}
	sb.WriteString("\n")

	if len(r.Failures) > 0 {
		sb.WriteString("### Failed Runs\n\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Label, f.Error))
		}
		sb.WriteString("\n")
	}

	// Benchmarks
	sb.WriteString("## Benchmark\n\n")
	if len(r.Benchmarks) > 0 {
		sb.WriteString("| Asset | Return | MaxDD |\n")
		sb.WriteString("|-------|--------|-------|\n")
		for _, b := range r.Benchmarks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", b.Asset, formatPct(b.Return), formatPct(b.MaxDrawdown)))
		}
	} else {
		sb.WriteString("No benchmark available.\n")
	}
	sb.WriteString("\n")

	// Trades (single run only)
	if len(r.Runs) == 1 {
		sb.WriteString("## Trades\n\n")
		if len(r.Trades) > 0 {
			sb.WriteString("| Asset | Entry | Exit | Size | Entry Price | Exit Price | Profit | Partial |\n")
			sb.WriteString("|-------|-------|------|------|-------------|------------|--------|---------|\n")
			for _, t := range r.Trades {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %t |\n",
					t.Asset, formatDate(t.EntryTime), formatDate(t.ExitTime),
					t.Size.String(), t.EntryPrice.StringFixed(4), t.ExitPrice.StringFixed(4),
					t.Profit.StringFixed(2), t.Partial))
			}
		} else {
			sb.WriteString("No trades.\n")
		}
		sb.WriteString("\n")
	}

	// Diagnostics
	sb.WriteString("## Diagnostics\n\n")
	if len(r.Diagnostics) > 0 {
		sb.WriteString("| Code | Level | Count |\n")
		sb.WriteString("|------|-------|-------|\n")
		for _, d := range r.Diagnostics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", d.Code, d.Level, d.Count))
		}
	} else {
		sb.WriteString("No diagnostics.\n")
	}

	return sb.String()
}

func formatDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

func formatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatFloat(v)
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatFloat renders non-finite values as inf or n/a.
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "n/a"
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
