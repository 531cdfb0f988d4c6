package domain

// Order is a strategy instruction. Size is signed: positive buys, negative sells.
// Price is the strategy's reference price; fills use the bar's open or close.
type Order struct {
	Asset string  `json:"asset"`
	Size  float64 `json:"size"`
	Price float64 `json:"price"`
}

// Position is an open long holding. A flat asset has no Position at all.
type Position struct {
	Size       Money // units held, always > 0
	EntryPrice Money // volume-weighted average fill price, before commission
	CostBasis  Money // cash paid for the open units, commission included
	EntryTime  int64 // timestamp of the fill that opened the position
	EntryBar   int
}

// Trade is a realized round trip. Partial is set when only part of the
// position was closed.
type Trade struct {
	ID         string `json:"id"`
	Asset      string `json:"asset"`
	EntryTime  int64  `json:"entry_time"`
	ExitTime   int64  `json:"exit_time"`
	EntryPrice Money  `json:"entry_price"`
	ExitPrice  Money  `json:"exit_price"`
	Size       Money  `json:"size"`
	Profit     Money  `json:"profit"` // exit proceeds minus cost basis, commissions included
	Partial    bool   `json:"partial"`
}

// Side reports the order direction.
func (o Order) Side() string {
	switch {
	case o.Size > 0:
		return SideBuy
	case o.Size < 0:
		return SideSell
	default:
		return SideNone
	}
}

// Order sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
	SideNone = "none"
)
