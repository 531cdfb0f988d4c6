package strategy

import (
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// DefaultFraction is the share of cash committed on entry. It leaves room
// for commission and for the gap between signal close and next open.
const DefaultFraction = 0.95

// BuyAndHold buys Asset with Fraction of cash on the first bar and never sells.
type BuyAndHold struct {
	Asset    string
	Fraction float64
}

// NewBuyAndHold creates a buy-and-hold strategy for asset.
func NewBuyAndHold(asset string, fraction float64) *BuyAndHold {
	return &BuyAndHold{Asset: asset, Fraction: fraction}
}

// Name returns the strategy identifier.
func (s *BuyAndHold) Name() string {
	return "buy_and_hold_" + s.Asset
}

// Decide buys on bar 0 only.
func (s *BuyAndHold) Decide(in *backtest.Input) []domain.Order {
	if in.Index != 0 {
		return nil
	}
	if _, held := in.Positions.Get(s.Asset); held {
		return nil
	}

	price, ok := in.Close(s.Asset)
	if !ok {
		return nil
	}

	return []domain.Order{{
		Asset: s.Asset,
		Size:  in.Cash.InexactFloat64() * s.Fraction / price,
		Price: price,
	}}
}

var _ backtest.Strategy = (*BuyAndHold)(nil)
