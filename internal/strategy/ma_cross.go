package strategy

import (
	"fmt"
	"math"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// MACross trades one asset on simple moving average crossings of its close.
// A golden cross (short SMA rising above long SMA) buys Fraction of cash
// when flat; a death cross sells the whole position.
// The averages are recomputed from the dataset prefix on every bar, so the
// strategy keeps no state between calls.
type MACross struct {
	Asset       string
	ShortPeriod int
	LongPeriod  int
	Fraction    float64
}

// NewMACross creates a moving average crossover strategy.
func NewMACross(asset string, shortPeriod, longPeriod int, fraction float64) *MACross {
	return &MACross{
		Asset:       asset,
		ShortPeriod: shortPeriod,
		LongPeriod:  longPeriod,
		Fraction:    fraction,
	}
}

// Name returns the strategy identifier.
func (s *MACross) Name() string {
	return fmt.Sprintf("ma_cross_%s_%d_%d", s.Asset, s.ShortPeriod, s.LongPeriod)
}

// Decide compares the averages ending at bar i-1 and bar i.
func (s *MACross) Decide(in *backtest.Input) []domain.Order {
	series, ok := in.Data.Asset(s.Asset)
	if !ok || in.Index < s.LongPeriod {
		return nil
	}
	closes := series.Close[:in.Index+1]

	prevShort, ok1 := sma(closes[:len(closes)-1], s.ShortPeriod)
	prevLong, ok2 := sma(closes[:len(closes)-1], s.LongPeriod)
	currShort, ok3 := sma(closes, s.ShortPeriod)
	currLong, ok4 := sma(closes, s.LongPeriod)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	price := closes[len(closes)-1]
	held := in.Positions.Size(s.Asset)

	switch {
	case prevShort <= prevLong && currShort > currLong && held == 0:
		return []domain.Order{{
			Asset: s.Asset,
			Size:  in.Cash.InexactFloat64() * s.Fraction / price,
			Price: price,
		}}
	case prevShort >= prevLong && currShort < currLong && held > 0:
		return []domain.Order{{Asset: s.Asset, Size: -held, Price: price}}
	}

	return nil
}

// sma averages the last period values. ok is false when there are too few
// values or any of them is not finite.
func sma(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		sum += v
	}
	return sum / float64(period), true
}

var _ backtest.Strategy = (*MACross)(nil)
