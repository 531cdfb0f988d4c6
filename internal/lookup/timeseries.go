package lookup

import (
	"errors"
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrNoPriceData  = errors.New("no price data available")
	ErrInvalidPrice = errors.New("price is not a positive finite number")
)

// Field selects the OHLC column a price is read from.
type Field int

// Price fields.
const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
)

// String returns the lowercase column name.
func (f Field) String() string {
	switch f {
	case FieldOpen:
		return "open"
	case FieldHigh:
		return "high"
	case FieldLow:
		return "low"
	case FieldClose:
		return "close"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// PriceAt returns the asset's field value at bar.
// Returns ErrUnknownAsset if the asset is not in the dataset,
// ErrNoPriceData if bar is outside the timeline and
// ErrInvalidPrice if the value is NaN, infinite or not positive.
func PriceAt(data *domain.AlignedDataset, asset string, bar int, field Field) (float64, error) {
	s, ok := data.Asset(asset)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAsset, asset)
	}

	col := column(s, field)
	if bar < 0 || bar >= len(col) {
		return 0, fmt.Errorf("%w: %s bar %d", ErrNoPriceData, asset, bar)
	}

	price := col[bar]
	if !ValidPrice(price) {
		return price, fmt.Errorf("%w: %s %s at bar %d is %v", ErrInvalidPrice, asset, field, bar, price)
	}

	return price, nil
}

// CloseAt is PriceAt for the close column.
func CloseAt(data *domain.AlignedDataset, asset string, bar int) (float64, error) {
	return PriceAt(data, asset, bar, FieldClose)
}

// OpenAt is PriceAt for the open column.
func OpenAt(data *domain.AlignedDataset, asset string, bar int) (float64, error) {
	return PriceAt(data, asset, bar, FieldOpen)
}

// ValidPrice reports whether p can be used as a fill or mark price.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

func column(s *domain.AlignedSeries, field Field) []float64 {
	switch field {
	case FieldOpen:
		return s.Open
	case FieldHigh:
		return s.High
	case FieldLow:
		return s.Low
	default:
		return s.Close
	}
}
