package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"backtest-lab/internal/domain"
)

// WriteSummaryCSV writes one row per successful run.
func WriteSummaryCSV(w io.Writer, runs []RunRow) error {
	rows := [][]string{{
		"label", "run_id", "strategy", "num_trades", "total_return", "final_value",
		"max_drawdown", "avg_drawdown", "win_rate", "profit_factor", "expectancy",
		"volatility", "sharpe", "exposure_time", "benchmark_asset", "benchmark_return", "excess_return",
	}}
	for _, r := range runs {
		s := r.Stats
		rows = append(rows, []string{
			r.Label,
			r.RunID,
			r.Strategy,
			strconv.Itoa(s.NumTrades),
			ftoa(s.TotalReturn),
			ftoa(s.FinalValue),
			ftoa(s.MaxDrawdown),
			ftoa(s.AvgDrawdown),
			ftoa(s.WinRate),
			ftoa(s.ProfitFactor),
			ftoa(s.Expectancy),
			ftoa(s.Volatility),
			ftoa(s.Sharpe),
			ftoa(s.ExposureTime),
			r.BenchmarkAsset,
			ftoa(r.BenchmarkReturn),
			ftoa(r.ExcessReturn),
		})
	}
	return writeRows(w, rows)
}

// WriteTradesCSV writes the trade log.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	rows := [][]string{{
		"id", "asset", "entry_time", "exit_time", "size", "entry_price", "exit_price", "profit", "partial",
	}}
	for _, t := range trades {
		rows = append(rows, []string{
			t.ID,
			t.Asset,
			strconv.FormatInt(t.EntryTime, 10),
			strconv.FormatInt(t.ExitTime, 10),
			t.Size.String(),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Profit.String(),
			strconv.FormatBool(t.Partial),
		})
	}
	return writeRows(w, rows)
}

// WriteTimeSeriesCSV writes the per-bar portfolio snapshots with one
// position column per asset. Assets are sorted by name when nil.
func WriteTimeSeriesCSV(w io.Writer, points []domain.TimeSeriesPoint, assets []string) error {
	if assets == nil {
		assets = positionAssets(points)
	}

	header := []string{"date", "portfolio_value", "cash", "drawdown"}
	for _, a := range assets {
		header = append(header, "pos_"+a)
	}
	rows := [][]string{header}

	for _, p := range points {
		row := []string{
			strconv.FormatInt(p.Date, 10),
			p.PortfolioValue.String(),
			p.Cash.String(),
			ftoa(p.Drawdown),
		}
		for _, a := range assets {
			row = append(row, ftoa(p.Positions[a]))
		}
		rows = append(rows, row)
	}
	return writeRows(w, rows)
}

func positionAssets(points []domain.TimeSeriesPoint) []string {
	seen := make(map[string]struct{})
	for _, p := range points {
		for a := range p.Positions {
			seen[a] = struct{}{}
		}
	}
	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

func writeRows(w io.Writer, rows [][]string) error {
	if err := csv.NewWriter(w).WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
