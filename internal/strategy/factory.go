// Package strategy holds the reference strategies and builds them from config.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingAsset        = errors.New("BUY_AND_HOLD/MA_CROSS requires Asset")
	ErrInvalidFraction     = errors.New("fraction must be in (0, 1]")
	ErrMissingPeriods      = errors.New("MA_CROSS requires ShortPeriod and LongPeriod")
	ErrInvalidPeriods      = errors.New("MA_CROSS requires 0 < ShortPeriod < LongPeriod")
)

// FromConfig creates a Strategy from domain.StrategyConfig.
// StrategyType is matched case-insensitively.
// Validates required parameters per strategy type.
func FromConfig(cfg domain.StrategyConfig) (backtest.Strategy, error) {
	switch strings.ToUpper(cfg.StrategyType) {
	case domain.StrategyTypeCrossover:
		return fromCrossoverConfig(cfg)
	case domain.StrategyTypeBuyAndHold:
		return fromBuyAndHoldConfig(cfg)
	case domain.StrategyTypeMACross:
		return fromMACrossConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.StrategyType)
	}
}

// fromCrossoverConfig creates Crossover from config.
func fromCrossoverConfig(cfg domain.StrategyConfig) (*Crossover, error) {
	frac, err := fraction(cfg.LegFraction, DefaultLegFraction)
	if err != nil {
		return nil, err
	}
	return NewCrossover(frac), nil
}

// fromBuyAndHoldConfig creates BuyAndHold from config.
func fromBuyAndHoldConfig(cfg domain.StrategyConfig) (*BuyAndHold, error) {
	if cfg.Asset == "" {
		return nil, ErrMissingAsset
	}
	frac, err := fraction(cfg.Fraction, DefaultFraction)
	if err != nil {
		return nil, err
	}
	return NewBuyAndHold(cfg.Asset, frac), nil
}

// fromMACrossConfig creates MACross from config.
func fromMACrossConfig(cfg domain.StrategyConfig) (*MACross, error) {
	if cfg.Asset == "" {
		return nil, ErrMissingAsset
	}
	if cfg.ShortPeriod == nil || cfg.LongPeriod == nil {
		return nil, ErrMissingPeriods
	}
	if *cfg.ShortPeriod <= 0 || *cfg.ShortPeriod >= *cfg.LongPeriod {
		return nil, ErrInvalidPeriods
	}
	frac, err := fraction(cfg.Fraction, DefaultFraction)
	if err != nil {
		return nil, err
	}
	return NewMACross(cfg.Asset, *cfg.ShortPeriod, *cfg.LongPeriod, frac), nil
}

func fraction(v *float64, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	if !(*v > 0 && *v <= 1) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFraction, *v)
	}
	return *v, nil
}
