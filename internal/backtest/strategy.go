package backtest

import (
	"backtest-lab/internal/domain"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/lookup"
)

// Strategy decides orders for one bar. Decide must be a pure function of
// its input: it must not mutate the dataset or keep state across calls.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string

	// Decide returns the orders to execute for bar in.Index.
	// Returning nil means no action.
	Decide(in *Input) []domain.Order
}

// NormalizationAware is implemented by strategies that read Input.Normalized.
type NormalizationAware interface {
	NeedsNormalized() bool
}

// StrategyFunc adapts a function into a Strategy.
type StrategyFunc struct {
	ID string
	Fn func(in *Input) []domain.Order
}

// Name returns the strategy identifier.
func (s StrategyFunc) Name() string {
	if s.ID == "" {
		return "func"
	}
	return s.ID
}

// Decide calls Fn.
func (s StrategyFunc) Decide(in *Input) []domain.Order {
	if s.Fn == nil {
		return nil
	}
	return s.Fn(in)
}

// Input is the read-only view a strategy receives for one bar.
type Input struct {
	Data       *domain.AlignedDataset
	Index      int
	Cash       domain.Money
	Positions  PositionView
	Normalized domain.NormalizedDataset // nil unless normalization is enabled
}

// Date returns the timestamp of the current bar.
func (in *Input) Date() int64 {
	return in.Data.Date[in.Index]
}

// Close returns asset's close at the current bar.
func (in *Input) Close(asset string) (float64, bool) {
	p, err := lookup.CloseAt(in.Data, asset, in.Index)
	return p, err == nil
}

// PositionView exposes open positions without allowing mutation.
type PositionView struct {
	l *ledger.Ledger
}

// Get returns the open position for asset. ok is false when flat.
func (v PositionView) Get(asset string) (domain.Position, bool) {
	if v.l == nil {
		return domain.Position{}, false
	}
	return v.l.Position(asset)
}

// Size returns the open size for asset, 0 when flat.
func (v PositionView) Size(asset string) float64 {
	p, ok := v.Get(asset)
	if !ok {
		return 0
	}
	return p.Size.InexactFloat64()
}

// Holdings returns assets with an open position, sorted by name.
func (v PositionView) Holdings() []string {
	if v.l == nil {
		return nil
	}
	return v.l.Holdings()
}

// StubStrategy replays scripted orders by bar index and records which bars
// it was asked about.
type StubStrategy struct {
	Orders map[int][]domain.Order
	seen   []int
}

// NewStubStrategy creates a stub returning orders for the given bars.
func NewStubStrategy(orders map[int][]domain.Order) *StubStrategy {
	return &StubStrategy{Orders: orders}
}

// Name returns the strategy identifier.
func (s *StubStrategy) Name() string {
	return "stub"
}

// Decide returns the scripted orders for in.Index.
func (s *StubStrategy) Decide(in *Input) []domain.Order {
	s.seen = append(s.seen, in.Index)
	return s.Orders[in.Index]
}

// Seen returns the bar indices Decide was called with.
func (s *StubStrategy) Seen() []int {
	return s.seen
}

// Ensure implementations satisfy Strategy
var (
	_ Strategy = StrategyFunc{}
	_ Strategy = (*StubStrategy)(nil)
)
