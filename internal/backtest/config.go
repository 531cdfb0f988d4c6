package backtest

import (
	"errors"
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// Default run settings.
const (
	DefaultCash       = 10000.0
	DefaultCommission = 0.0
)

// Errors returned by the engine.
var (
	ErrInvalidConfig    = errors.New("invalid backtest config")
	ErrBarLimitExceeded = errors.New("bar limit exceeded")
	ErrNilStrategy      = errors.New("strategy is nil")
)

// Config holds run parameters.
type Config struct {
	Cash           float64 // starting cash; 0 means DefaultCash
	Commission     float64 // proportional rate charged on each fill, in [0, 1)
	TradeOnClose   bool    // fill at the signal bar's close instead of the next bar's open
	Normalize      bool    // compute normalized prices for strategies
	BenchmarkAsset string  // defaults to the first aligned asset
	MaxBars        int     // 0 means unlimited
}

// DefaultConfig returns the default run settings.
func DefaultConfig() Config {
	return Config{
		Cash:       DefaultCash,
		Commission: DefaultCommission,
	}
}

func (c Config) withDefaults() Config {
	if c.Cash == 0 {
		c.Cash = DefaultCash
	}
	return c
}

// WithScenario returns c with the scenario's commission and fill timing.
func (c Config) WithScenario(sc domain.ScenarioConfig) Config {
	c.Commission = sc.Commission
	c.TradeOnClose = sc.TradeOnClose
	return c
}

// Validate checks config values.
func (c Config) Validate() error {
	if math.IsNaN(c.Cash) || math.IsInf(c.Cash, 0) || c.Cash < 0 {
		return fmt.Errorf("%w: cash must be a non-negative finite number, got %v", ErrInvalidConfig, c.Cash)
	}
	if math.IsNaN(c.Commission) || c.Commission < 0 || c.Commission >= 1 {
		return fmt.Errorf("%w: commission must be in [0, 1), got %v", ErrInvalidConfig, c.Commission)
	}
	if c.MaxBars < 0 {
		return fmt.Errorf("%w: max bars must not be negative, got %d", ErrInvalidConfig, c.MaxBars)
	}
	return nil
}

// fingerprint identifies the settings that influence results.
func (c Config) fingerprint() string {
	return fmt.Sprintf("cash=%g|commission=%g|on_close=%t|normalize=%t|benchmark=%s",
		c.Cash, c.Commission, c.TradeOnClose, c.Normalize, c.BenchmarkAsset)
}
