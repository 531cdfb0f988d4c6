package observability

import (
	"context"
	"errors"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// InstrumentedStore wraps a BarStore with latency, error and volume metrics.
// ErrNotFound is a normal answer and is not counted as an error.
type InstrumentedStore struct {
	next    storage.BarStore
	backend string
	metrics *Metrics
}

var _ storage.BarStore = (*InstrumentedStore)(nil)

// InstrumentStore wraps next. A nil metrics returns next unchanged.
func InstrumentStore(next storage.BarStore, backend string, m *Metrics) storage.BarStore {
	if m == nil {
		return next
	}
	return &InstrumentedStore{next: next, backend: backend, metrics: m}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	s.metrics.RecordStoreOp(s.backend, op, time.Since(start), err)
}

// InsertBulk implements storage.BarStore.
func (s *InstrumentedStore) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, bars)
	s.observe("insert", start, err)
	if err == nil {
		s.metrics.RecordBarsStored(s.backend, len(bars))
	}
	return err
}

// GetBySymbol implements storage.BarStore.
func (s *InstrumentedStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.Bar, error) {
	start := time.Now()
	bars, err := s.next.GetBySymbol(ctx, symbol)
	s.observe("get", start, err)
	return bars, err
}

// GetByTimeRange implements storage.BarStore.
func (s *InstrumentedStore) GetByTimeRange(ctx context.Context, symbol string, from, to int64) ([]domain.Bar, error) {
	start := time.Now()
	bars, err := s.next.GetByTimeRange(ctx, symbol, from, to)
	s.observe("get_range", start, err)
	return bars, err
}

// Symbols implements storage.BarStore.
func (s *InstrumentedStore) Symbols(ctx context.Context) ([]string, error) {
	start := time.Now()
	symbols, err := s.next.Symbols(ctx)
	s.observe("symbols", start, err)
	return symbols, err
}

// DeleteSymbol implements storage.BarStore.
func (s *InstrumentedStore) DeleteSymbol(ctx context.Context, symbol string) error {
	start := time.Now()
	err := s.next.DeleteSymbol(ctx, symbol)
	s.observe("delete", start, err)
	return err
}
