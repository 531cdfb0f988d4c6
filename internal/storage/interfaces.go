// Package storage defines persistence interfaces for price bars.
package storage

import (
	"context"

	"backtest-lab/internal/domain"
)

// BarStore provides access to bars storage, keyed by (symbol, timestamp_ms).
type BarStore interface {
	// InsertBulk adds multiple bars atomically. Fails entire batch on any duplicate
	// (existing or intra-batch) with ErrDuplicateKey, and on a bar without symbol
	// with ErrInvalidInput.
	InsertBulk(ctx context.Context, bars []domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	// Returns ErrNotFound if the symbol has no bars.
	GetBySymbol(ctx context.Context, symbol string) ([]domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]domain.Bar, error)

	// Symbols returns every stored symbol, sorted ASC.
	Symbols(ctx context.Context) ([]string, error)

	// DeleteSymbol removes all bars of a symbol. Deleting an unknown symbol is not an error.
	DeleteSymbol(ctx context.Context, symbol string) error
}

// ValidateBatch checks a batch for missing symbols and intra-batch duplicates.
func ValidateBatch(bars []domain.Bar) error {
	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b.Symbol == "" {
			return ErrInvalidInput
		}
		k := key{b.Symbol, b.TimestampMs}
		if _, exists := seen[k]; exists {
			return ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}
	return nil
}
