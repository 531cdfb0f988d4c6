// Package backtest runs a strategy bar by bar over an aligned dataset and
// records the resulting portfolio trajectory.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/alignment"
	"backtest-lab/internal/diagnostics"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/lookup"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/normalization"
)

// Engine executes backtest runs. An Engine holds no per-run state and may
// be reused; each Run owns a fresh ledger.
type Engine struct {
	cfg      Config
	sink     diagnostics.Sink
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink forwards every diagnostic to sink in addition to the result.
func WithSink(sink diagnostics.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithRecorder attaches run telemetry.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock sets the clock used to time runs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. Zero config fields take their defaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.withDefaults(),
		sink:     diagnostics.Nop{},
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run simulates strategy over aligned.
//
// On every bar i:
//  1. in next-open mode, orders queued on bar i-1 fill at bar i's open
//  2. the strategy decides on a read-only Input
//  3. in trade-on-close mode, those orders fill at bar i's close in order;
//     otherwise they are queued (and dropped on the last bar)
//  4. the portfolio is marked to bar i's close
//
// Recoverable anomalies become diagnostics; only invalid configuration,
// an exceeded bar limit or context cancellation return an error.
func (e *Engine) Run(ctx context.Context, aligned *domain.AlignedDataset, strategy Strategy) (res *domain.Result, err error) {
	if strategy == nil {
		return nil, ErrNilStrategy
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	started := e.now()
	defer func() {
		e.recorder.RunFinished(strategy.Name(), e.now().Sub(started), err)
	}()

	n := aligned.Len()
	if e.cfg.MaxBars > 0 && n > e.cfg.MaxBars {
		return nil, fmt.Errorf("%w: %d bars, limit %d", ErrBarLimitExceeded, n, e.cfg.MaxBars)
	}

	r := e.newRun(aligned, strategy)
	r.start()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s stopped at bar %d: %w", strategy.Name(), i, err)
		}
		r.step(i)
		e.recorder.BarProcessed()
	}

	return r.result(), nil
}

// Run aligns raw series and runs strategy over them with cfg.
func Run(ctx context.Context, series []domain.AssetSeries, strategy Strategy, cfg Config, opts ...Option) (*domain.Result, error) {
	aligned, err := alignment.Align(series)
	if err != nil {
		return nil, fmt.Errorf("align series: %w", err)
	}
	return NewEngine(cfg, opts...).Run(ctx, aligned, strategy)
}

// run is the mutable state of one simulation.
type run struct {
	cfg        Config
	data       *domain.AlignedDataset
	strategy   Strategy
	ledger     *ledger.Ledger
	normalized domain.NormalizedDataset
	collector  *diagnostics.Collector
	sink       diagnostics.Sink
	recorder   Recorder
	pending    []domain.Order
	points     []domain.TimeSeriesPoint
	peak       domain.Money
}

func (e *Engine) newRun(aligned *domain.AlignedDataset, strategy Strategy) *run {
	collector := diagnostics.NewCollector()
	return &run{
		cfg:      e.cfg,
		data:     aligned,
		strategy: strategy,
		ledger: ledger.New(
			decimal.NewFromFloat(e.cfg.Cash),
			decimal.NewFromFloat(e.cfg.Commission),
			ledger.WithAssets(aligned.Names()...),
		),
		collector: collector,
		sink:      diagnostics.Multi{collector, e.sink},
		recorder:  e.recorder,
		points:    make([]domain.TimeSeriesPoint, 0, aligned.Len()),
	}
}

func (r *run) start() {
	if r.cfg.Normalize {
		r.normalized = normalization.Normalize(r.data)
		return
	}
	if na, ok := r.strategy.(NormalizationAware); ok && na.NeedsNormalized() {
		r.report(domain.Diagnostic{
			Bar:     -1,
			Level:   domain.LevelWarn,
			Code:    domain.CodeNormalizationRequired,
			Message: fmt.Sprintf("strategy %s reads normalized prices but normalization is disabled", r.strategy.Name()),
		})
	}
}

func (r *run) step(i int) {
	if !r.cfg.TradeOnClose && len(r.pending) > 0 {
		r.execute(r.pending, i, lookup.FieldOpen)
		r.pending = nil
	}

	orders := r.strategy.Decide(&Input{
		Data:       r.data,
		Index:      i,
		Cash:       r.ledger.Cash(),
		Positions:  PositionView{l: r.ledger},
		Normalized: r.normalized,
	})

	switch {
	case r.cfg.TradeOnClose:
		r.execute(orders, i, lookup.FieldClose)
	case i == r.data.Len()-1:
		for _, o := range orders {
			r.report(domain.Diagnostic{
				Bar:     i,
				Date:    r.data.Date[i],
				Asset:   o.Asset,
				Level:   domain.LevelInfo,
				Code:    domain.CodeTruncated,
				Message: fmt.Sprintf("%s order of %g dropped: no bar left to fill it", o.Side(), o.Size),
			})
		}
	case len(orders) > 0:
		r.pending = append([]domain.Order(nil), orders...)
	}

	r.mark(i)
}

func (r *run) execute(orders []domain.Order, i int, field lookup.Field) {
	fill := ledger.Fill{Bar: i, Time: r.data.Date[i]}

	for _, o := range orders {
		// The ledger classifies unknown assets and unusable prices.
		price, priceErr := lookup.PriceAt(r.data, o.Asset, i, field)
		fill.Price = price

		out := r.ledger.Apply(o, fill)
		if !out.Accepted() {
			msg := fmt.Sprintf("%s order of %g rejected: %s", o.Side(), o.Size, out.Rejection)
			if priceErr != nil {
				msg += ": " + priceErr.Error()
			}
			r.report(domain.Diagnostic{
				Bar:     i,
				Date:    fill.Time,
				Asset:   o.Asset,
				Level:   out.Rejection.Level(),
				Code:    out.Rejection.Code(),
				Message: msg,
			})
			continue
		}

		r.recorder.OrderFilled(o.Side())

		if out.Clamped {
			r.report(domain.Diagnostic{
				Bar:     i,
				Date:    fill.Time,
				Asset:   o.Asset,
				Level:   domain.LevelInfo,
				Code:    domain.CodeSellClamped,
				Message: fmt.Sprintf("sell of %g clamped to held size %s", -o.Size, out.Filled.Neg()),
			})
		}
	}
}

func (r *run) mark(i int) {
	value := r.ledger.Cash()
	sizes := make(map[string]float64)

	for _, asset := range r.ledger.Holdings() {
		pos, _ := r.ledger.Position(asset)
		sizes[asset] = pos.Size.InexactFloat64()

		price, err := lookup.CloseAt(r.data, asset, i)
		if err != nil {
			r.report(domain.Diagnostic{
				Bar:     i,
				Date:    r.data.Date[i],
				Asset:   asset,
				Level:   domain.LevelWarn,
				Code:    domain.CodeMissingPrice,
				Message: fmt.Sprintf("position excluded from valuation: %v", err),
			})
			continue
		}
		value = value.Add(pos.Size.Mul(decimal.NewFromFloat(price)))
	}

	if i == 0 || value.GreaterThan(r.peak) {
		r.peak = value
	}
	drawdown := 0.0
	if r.peak.IsPositive() {
		drawdown = r.peak.Sub(value).Div(r.peak).InexactFloat64()
	}

	r.points = append(r.points, domain.TimeSeriesPoint{
		Date:           r.data.Date[i],
		PortfolioValue: value,
		Cash:           r.ledger.Cash(),
		Drawdown:       drawdown,
		Positions:      sizes,
	})
}

func (r *run) report(d domain.Diagnostic) {
	r.sink.Report(d)
	r.recorder.DiagnosticReported(d.Code)
}

func (r *run) result() *domain.Result {
	benchAsset := r.cfg.BenchmarkAsset
	if benchAsset == "" && len(r.data.Names()) > 0 {
		benchAsset = r.data.Names()[0]
	}

	first, last := int64(0), int64(0)
	if n := r.data.Len(); n > 0 {
		first, last = r.data.Date[0], r.data.Date[n-1]
	}

	trades := r.ledger.Trades()
	bench := metrics.ComputeBenchmark(r.data, benchAsset, r.cfg.TradeOnClose)

	return &domain.Result{
		RunID:       idhash.ComputeRunID(r.strategy.Name(), r.cfg.fingerprint(), r.data.Names(), first, last),
		Strategy:    r.strategy.Name(),
		TimeSeries:  r.points,
		Trades:      trades,
		Stats:       metrics.Summarize(r.points, trades, r.cfg.Cash),
		Benchmark:   bench,
		Diagnostics: r.collector.All(),
	}
}
