package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

const symbolsKey = "bars:symbols"

// BarStore keeps each symbol's bars in a hash at "bars:{symbol}", one field per
// timestamp. Field values are "open,high,low,close,volume" so NaN survives.
type BarStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// Option configures a BarStore.
type Option func(*BarStore)

// WithTTL expires a symbol's hash ttl after its last write. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *BarStore) { s.ttl = ttl }
}

// NewBarStore creates a BarStore backed by the given Client.
func NewBarStore(c *Client, opts ...Option) *BarStore {
	s := &BarStore{rdb: c.rdb}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

func barsKey(symbol string) string {
	return "bars:" + symbol
}

// InsertBulk adds multiple bars atomically. Fails entire batch on any duplicate.
func (s *BarStore) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := storage.ValidateBatch(bars); err != nil {
		return err
	}

	checks := make([]*redis.BoolCmd, len(bars))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, b := range bars {
			checks[i] = p.HExists(ctx, barsKey(b.Symbol), formatTimestamp(b.TimestampMs))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: check bars: %w", err)
	}
	for _, c := range checks {
		if c.Val() {
			return storage.ErrDuplicateKey
		}
	}

	fields := make(map[string][]interface{})
	for _, b := range bars {
		key := barsKey(b.Symbol)
		fields[key] = append(fields[key], formatTimestamp(b.TimestampMs), encodeBar(b))
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, b := range bars {
			p.SAdd(ctx, symbolsKey, b.Symbol)
		}
		for key, values := range fields {
			p.HSet(ctx, key, values...)
			if s.ttl > 0 {
				p.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: insert bars: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.Bar, error) {
	bars, err := s.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, storage.ErrNotFound
	}
	return bars, nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]domain.Bar, error) {
	bars, err := s.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	var out []domain.Bar
	for _, b := range bars {
		if b.TimestampMs >= start && b.TimestampMs <= end {
			out = append(out, b)
		}
	}
	return out, nil
}

// Symbols returns every stored symbol, sorted ASC. Symbols whose hash expired
// are dropped from the set lazily.
func (s *BarStore) Symbols(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, symbolsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list symbols: %w", err)
	}

	symbols := make([]string, 0, len(members))
	for _, m := range members {
		n, err := s.rdb.Exists(ctx, barsKey(m)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: check symbol %s: %w", m, err)
		}
		if n == 0 {
			s.rdb.SRem(ctx, symbolsKey, m)
			continue
		}
		symbols = append(symbols, m)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// DeleteSymbol removes all bars of a symbol.
func (s *BarStore) DeleteSymbol(ctx context.Context, symbol string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, barsKey(symbol))
		p.SRem(ctx, symbolsKey, symbol)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete symbol %s: %w", symbol, err)
	}
	return nil
}

func (s *BarStore) load(ctx context.Context, symbol string) ([]domain.Bar, error) {
	vals, err := s.rdb.HGetAll(ctx, barsKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get bars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(vals))
	for field, value := range vals {
		ts, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse timestamp %s/%s: %w", symbol, field, err)
		}
		b, err := decodeBar(value)
		if err != nil {
			return nil, fmt.Errorf("redis: parse bar %s/%s: %w", symbol, field, err)
		}
		b.Symbol = symbol
		b.TimestampMs = ts
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].TimestampMs < bars[j].TimestampMs })
	return bars, nil
}

func formatTimestamp(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

func encodeBar(b domain.Bar) string {
	parts := [5]string{
		strconv.FormatFloat(b.Open, 'g', -1, 64),
		strconv.FormatFloat(b.High, 'g', -1, 64),
		strconv.FormatFloat(b.Low, 'g', -1, 64),
		strconv.FormatFloat(b.Close, 'g', -1, 64),
		strconv.FormatFloat(b.Volume, 'g', -1, 64),
	}
	return strings.Join(parts[:], ",")
}

func decodeBar(value string) (domain.Bar, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 5 {
		return domain.Bar{}, fmt.Errorf("want 5 fields, got %d", len(parts))
	}
	var nums [5]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return domain.Bar{}, err
		}
		nums[i] = v
	}
	return domain.Bar{
		Open:   nums[0],
		High:   nums[1],
		Low:    nums[2],
		Close:  nums[3],
		Volume: nums[4],
	}, nil
}
