// Package ledger holds a run's cash, open positions and realized trades, and
// applies orders to them.
package ledger

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/lookup"
)

// Fill is where and when an order executes.
type Fill struct {
	Price float64 // execution price (bar open or close)
	Bar   int
	Time  int64
}

// Rejection explains why an order was not executed.
// The zero value means the order was accepted.
type Rejection string

// Rejection reasons.
const (
	RejectNone             Rejection = ""
	RejectInsufficientCash Rejection = "insufficient_cash"
	RejectNoPosition       Rejection = "no_position"
	RejectZeroSize         Rejection = "zero_size"
	RejectInvalidSize      Rejection = "invalid_size"
	RejectInvalidPrice     Rejection = "invalid_price"
	RejectUnknownAsset     Rejection = "unknown_asset"
)

// Code maps the rejection to its diagnostic code.
func (r Rejection) Code() domain.Code {
	switch r {
	case RejectInsufficientCash:
		return domain.CodeInsufficientCash
	case RejectNoPosition:
		return domain.CodeNoPosition
	case RejectZeroSize:
		return domain.CodeZeroSize
	case RejectInvalidSize:
		return domain.CodeInvalidSize
	case RejectInvalidPrice:
		return domain.CodeInvalidPrice
	case RejectUnknownAsset:
		return domain.CodeUnknownAsset
	default:
		return ""
	}
}

// Level is info for zero-size orders and warn for everything else.
func (r Rejection) Level() domain.Level {
	if r == RejectZeroSize {
		return domain.LevelInfo
	}
	return domain.LevelWarn
}

// Outcome is the result of applying one order.
type Outcome struct {
	Rejection Rejection
	Trade     *domain.Trade // set when the order closed all or part of a position
	Filled    domain.Money  // signed quantity executed, zero when rejected
	Clamped   bool          // sell exceeded the held size and was cut to a full close
}

// Accepted reports whether the order changed the ledger.
func (o Outcome) Accepted() bool {
	return o.Rejection == RejectNone
}

// Ledger is the cash/position book of one run. It is not safe for
// concurrent use; a run owns its ledger exclusively.
type Ledger struct {
	cash       domain.Money
	commission domain.Money
	positions  map[string]*domain.Position
	trades     []domain.Trade
	assets     map[string]struct{} // nil accepts any asset
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAssets restricts the ledger to the named assets; orders for any
// other asset are rejected with RejectUnknownAsset.
func WithAssets(names ...string) Option {
	return func(l *Ledger) {
		l.assets = make(map[string]struct{}, len(names))
		for _, n := range names {
			l.assets[n] = struct{}{}
		}
	}
}

// New creates a ledger holding cash with a proportional commission rate
// charged on both legs.
func New(cash, commission domain.Money, opts ...Option) *Ledger {
	l := &Ledger{
		cash:       cash,
		commission: commission,
		positions:  make(map[string]*domain.Position),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cash returns available cash.
func (l *Ledger) Cash() domain.Money {
	return l.cash
}

// Position returns the open position for asset. ok is false when flat.
func (l *Ledger) Position(asset string) (domain.Position, bool) {
	p, ok := l.positions[asset]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Holdings returns the assets with an open position, sorted by name.
func (l *Ledger) Holdings() []string {
	names := make([]string, 0, len(l.positions))
	for name := range l.positions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenSizes returns a fresh map of asset to open size.
func (l *Ledger) OpenSizes() map[string]float64 {
	sizes := make(map[string]float64, len(l.positions))
	for name, p := range l.positions {
		sizes[name] = p.Size.InexactFloat64()
	}
	return sizes
}

// Trades returns a copy of the realized trades in execution order.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Apply executes order at fill. It never panics and never returns an error:
// an order that cannot execute leaves the ledger untouched and is described
// by the returned Outcome.
func (l *Ledger) Apply(order domain.Order, fill Fill) Outcome {
	if l.assets != nil {
		if _, ok := l.assets[order.Asset]; !ok {
			return Outcome{Rejection: RejectUnknownAsset}
		}
	}
	if math.IsNaN(order.Size) || math.IsInf(order.Size, 0) {
		return Outcome{Rejection: RejectInvalidSize}
	}
	if order.Size == 0 {
		return Outcome{Rejection: RejectZeroSize}
	}
	if !lookup.ValidPrice(fill.Price) {
		return Outcome{Rejection: RejectInvalidPrice}
	}

	price := decimal.NewFromFloat(fill.Price)
	qty := decimal.NewFromFloat(math.Abs(order.Size))

	if order.Size > 0 {
		return l.buy(order.Asset, qty, price, fill)
	}
	return l.sell(order.Asset, qty, price, fill)
}

func (l *Ledger) buy(asset string, qty, price domain.Money, fill Fill) Outcome {
	cost := price.Mul(qty).Mul(decimal.NewFromInt(1).Add(l.commission))
	if cost.GreaterThan(l.cash) {
		return Outcome{Rejection: RejectInsufficientCash}
	}

	l.cash = l.cash.Sub(cost)

	p, ok := l.positions[asset]
	if !ok {
		l.positions[asset] = &domain.Position{
			Size:       qty,
			EntryPrice: price,
			CostBasis:  cost,
			EntryTime:  fill.Time,
			EntryBar:   fill.Bar,
		}
		return Outcome{Filled: qty}
	}

	newSize := p.Size.Add(qty)
	p.EntryPrice = p.EntryPrice.Mul(p.Size).Add(price.Mul(qty)).Div(newSize)
	p.Size = newSize
	p.CostBasis = p.CostBasis.Add(cost)

	return Outcome{Filled: qty}
}

func (l *Ledger) sell(asset string, qty, price domain.Money, fill Fill) Outcome {
	p, ok := l.positions[asset]
	if !ok {
		return Outcome{Rejection: RejectNoPosition}
	}

	// Strategies see sizes as float64, so a sell of the rounded held size
	// closes the position instead of leaving dust.
	asFloat := decimal.NewFromFloat(p.Size.InexactFloat64())
	full := qty.GreaterThanOrEqual(p.Size) || qty.GreaterThanOrEqual(asFloat)
	clamped := qty.GreaterThan(p.Size) && qty.GreaterThan(asFloat)
	closed := qty
	costPortion := p.CostBasis
	if full {
		closed = p.Size
	} else {
		costPortion = p.CostBasis.Mul(closed).Div(p.Size)
	}

	proceeds := closed.Mul(price).Mul(decimal.NewFromInt(1).Sub(l.commission))
	l.cash = l.cash.Add(proceeds)

	trade := domain.Trade{
		ID:         idhash.ComputeTradeID(asset, p.EntryTime, fill.Time, len(l.trades)),
		Asset:      asset,
		EntryTime:  p.EntryTime,
		ExitTime:   fill.Time,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Size:       closed,
		Profit:     proceeds.Sub(costPortion),
		Partial:    !full,
	}
	l.trades = append(l.trades, trade)

	if full {
		delete(l.positions, asset)
	} else {
		p.Size = p.Size.Sub(closed)
		p.CostBasis = p.CostBasis.Sub(costPortion)
	}

	return Outcome{
		Trade:   &trade,
		Filled:  closed.Neg(),
		Clamped: clamped,
	}
}
