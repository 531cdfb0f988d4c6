package strategy

import (
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// DefaultLegFraction is the share of cash sized into each crossover leg.
const DefaultLegFraction = 0.1

// Crossover trades every asset pair on crossings of their normalized closes.
// When A's normalized close crosses above B's, it buys A and sells B, each
// leg worth LegFraction of current cash at the bar's close; the reverse
// crossing mirrors it. The sell leg only executes against an open position.
type Crossover struct {
	LegFraction float64
}

// NewCrossover creates a pairwise crossover strategy.
func NewCrossover(legFraction float64) *Crossover {
	return &Crossover{LegFraction: legFraction}
}

// Name returns the strategy identifier.
func (s *Crossover) Name() string {
	return "crossover"
}

// NeedsNormalized reports that Decide reads normalized prices.
func (s *Crossover) NeedsNormalized() bool {
	return true
}

// Decide emits the pair legs for crossings between bar i-1 and bar i.
func (s *Crossover) Decide(in *backtest.Input) []domain.Order {
	if in.Normalized == nil || in.Index == 0 {
		return nil
	}

	cash := in.Cash.InexactFloat64()
	names := in.Data.Names()
	var orders []domain.Order

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]

			prevA, currA, okA := s.pair(in, a)
			prevB, currB, okB := s.pair(in, b)
			if !okA || !okB {
				continue
			}

			priceA, okA := in.Close(a)
			priceB, okB := in.Close(b)
			if !okA || !okB {
				continue
			}

			switch {
			case prevA <= prevB && currA > currB:
				orders = append(orders,
					s.leg(a, cash, priceA, 1),
					s.leg(b, cash, priceB, -1),
				)
			case prevA >= prevB && currA < currB:
				orders = append(orders,
					s.leg(b, cash, priceB, 1),
					s.leg(a, cash, priceA, -1),
				)
			}
		}
	}

	return orders
}

// pair returns the previous and current normalized close of asset.
func (s *Crossover) pair(in *backtest.Input, asset string) (prev, curr float64, ok bool) {
	series, found := in.Normalized[asset]
	if !found || in.Index >= len(series.Close) {
		return 0, 0, false
	}
	return series.Close[in.Index-1], series.Close[in.Index], true
}

func (s *Crossover) leg(asset string, cash, price, sign float64) domain.Order {
	return domain.Order{
		Asset: asset,
		Size:  sign * cash * s.LegFraction / price,
		Price: price,
	}
}

var (
	_ backtest.Strategy           = (*Crossover)(nil)
	_ backtest.NormalizationAware = (*Crossover)(nil)
)
