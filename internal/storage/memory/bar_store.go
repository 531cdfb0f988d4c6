// Package memory provides in-memory store implementations for tests and
// single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.Bar // symbol -> timestamp_ms -> bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]map[int64]domain.Bar),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := storage.ValidateBatch(bars); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check against existing data
	for _, b := range bars {
		if _, exists := s.data[b.Symbol][b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
	}

	// Second pass: insert all
	for _, b := range bars {
		bySymbol, ok := s.data[b.Symbol]
		if !ok {
			bySymbol = make(map[int64]domain.Bar)
			s.data[b.Symbol] = bySymbol
		}
		bySymbol[b.TimestampMs] = b
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol, ok := s.data[symbol]
	if !ok || len(bySymbol) == 0 {
		return nil, storage.ErrNotFound
	}

	return collect(bySymbol, func(domain.Bar) bool { return true }), nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.data[symbol], func(b domain.Bar) bool {
		return b.TimestampMs >= start && b.TimestampMs <= end
	}), nil
}

// Symbols returns every stored symbol, sorted ASC.
func (s *BarStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for symbol := range s.data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// DeleteSymbol removes all bars of a symbol.
func (s *BarStore) DeleteSymbol(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, symbol)
	return nil
}

// collect copies matching bars out of the store ordered by timestamp.
func collect(bySymbol map[int64]domain.Bar, keep func(domain.Bar) bool) []domain.Bar {
	var result []domain.Bar
	for _, b := range bySymbol {
		if keep(b) {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

var _ storage.BarStore = (*BarStore)(nil)
