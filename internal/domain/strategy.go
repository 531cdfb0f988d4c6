package domain

import (
	"encoding/json"
	"math"
)

// Stats are the aggregate performance metrics of one completed run.
type Stats struct {
	MaxDrawdown  float64 `json:"max_drawdown"`  // largest peak-to-trough decline, fraction
	AvgDrawdown  float64 `json:"avg_drawdown"`  // mean per-bar drawdown
	WinRate      float64 `json:"win_rate"`      // trades with profit > 0 / total trades
	ProfitFactor float64 `json:"profit_factor"` // +Inf when there are wins and no losses
	Expectancy   float64 `json:"expectancy"`    // mean profit per trade
	Volatility   float64 `json:"volatility"`    // sample stddev of per-bar returns
	ExposureTime float64 `json:"exposure_time"` // bars with an open position / total bars
	NumTrades    int     `json:"num_trades"`

	TotalReturn float64 `json:"total_return"`
	FinalValue  float64 `json:"final_value"`
	Sharpe      float64 `json:"sharpe"` // per-bar, not annualized
}

// MarshalJSON encodes a non-finite ProfitFactor as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	out := struct {
		plain
		ProfitFactor *float64 `json:"profit_factor"`
	}{plain: plain(s)}
	if !math.IsInf(s.ProfitFactor, 0) && !math.IsNaN(s.ProfitFactor) {
		pf := s.ProfitFactor
		out.ProfitFactor = &pf
	}
	return json.Marshal(out)
}

// Benchmark is a passive buy-and-hold of one asset over the same timeline.
type Benchmark struct {
	Asset       string  `json:"asset"`
	Return      float64 `json:"return"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Result is the full output of a run.
type Result struct {
	RunID       string            `json:"run_id"`
	Strategy    string            `json:"strategy"`
	TimeSeries  []TimeSeriesPoint `json:"time_series"`
	Trades      []Trade           `json:"trades"`
	Stats       Stats             `json:"stats"`
	Benchmark   Benchmark         `json:"benchmark"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyType string // "CROSSOVER" | "BUY_AND_HOLD" | "MA_CROSS"

	// BUY_AND_HOLD and MA_CROSS parameters
	Asset    string
	Fraction *float64 // share of cash committed per entry

	// MA_CROSS parameters
	ShortPeriod *int
	LongPeriod  *int

	// CROSSOVER parameters
	LegFraction *float64 // share of cash per leg, default 0.1
}

// Strategy type constants
const (
	StrategyTypeCrossover  = "CROSSOVER"
	StrategyTypeBuyAndHold = "BUY_AND_HOLD"
	StrategyTypeMACross    = "MA_CROSS"
)
