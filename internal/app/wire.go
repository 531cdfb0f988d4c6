// Package app wires configuration into the sources, stores and metrics the
// command-line tools share.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/diagnostics"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/loader"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	pgstore "backtest-lab/internal/storage/postgres"
	redisstore "backtest-lab/internal/storage/redis"
)

// Store backends
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendRedis      = "redis"
)

// ErrUnknownBackend is returned for a source or store name that is not wired.
var ErrUnknownBackend = errors.New("unknown backend")

// Dependencies holds everything a run needs.
type Dependencies struct {
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	// LoadSink receives loader diagnostics: logged and counted.
	LoadSink diagnostics.Sink
	// RunSink receives engine diagnostics. Counting happens through the
	// engine's recorder, so this one only logs.
	RunSink diagnostics.Sink
	Source  loader.Source
}

// NewDependencies builds the logger-bound parts shared by every command.
func NewDependencies(logger *zap.Logger) *Dependencies {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := observability.NewMetrics(reg, observability.DefaultNamespace)

	zapSink := diagnostics.NewZapSink(logger)
	return &Dependencies{
		Logger:   logger,
		Registry: reg,
		Metrics:  m,
		LoadSink: diagnostics.Multi{zapSink, metricsSink{m}},
		RunSink:  zapSink,
	}
}

// Wire builds the dependencies for cfg and returns them with a cleanup
// function that closes every opened connection in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, func(), error) {
	deps := NewDependencies(logger)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	source, closeSource, err := deps.OpenSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeSource)

	if cfg.Redis.Enabled {
		cache, closeCache, err := deps.OpenStore(ctx, BackendRedis, cfg, false)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeCache)

		source = &loader.CachedSource{
			Source: source,
			Cache:  cache,
			OnCacheError: func(name string, err error) {
				logger.Warn("series cache unavailable", zap.String("series", name), zap.Error(err))
			},
		}
		logger.Info("series cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	deps.Source = source
	return deps, cleanup, nil
}

// OpenSource opens the series source named by cfg.Data.Source.
func (d *Dependencies) OpenSource(ctx context.Context, cfg *config.Config) (loader.Source, func(), error) {
	kind := strings.ToLower(cfg.Data.Source)
	switch kind {
	case "dir", "s3":
		src, err := d.OpenFileSource(ctx, kind, cfg)
		return src, func() {}, err
	case BackendPostgres, BackendClickhouse:
		store, closeStore, err := d.OpenStore(ctx, kind, cfg, false)
		if err != nil {
			return nil, nil, err
		}
		return &loader.StoreSource{Store: store}, closeStore, nil
	default:
		return nil, nil, fmt.Errorf("source %q: %w", cfg.Data.Source, ErrUnknownBackend)
	}
}

// OpenFileSource opens a CSV source: a local directory or an S3 bucket.
func (d *Dependencies) OpenFileSource(ctx context.Context, kind string, cfg *config.Config) (loader.Source, error) {
	switch strings.ToLower(kind) {
	case "dir":
		d.Logger.Info("reading series from directory", zap.String("dir", cfg.Data.Dir))
		return loader.NewDirSource(cfg.Data.Dir, d.LoadSink), nil
	case "s3":
		d.Logger.Info("reading series from s3",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix),
		)
		return loader.NewS3Source(ctx, loader.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		}, d.LoadSink)
	default:
		return nil, fmt.Errorf("file source %q: %w", kind, ErrUnknownBackend)
	}
}

// OpenStore connects to a bar store backend, optionally applying the embedded
// migrations first. The returned store reports to d.Metrics.
func (d *Dependencies) OpenStore(ctx context.Context, backend string, cfg *config.Config, migrate bool) (storage.BarStore, func(), error) {
	var (
		store   storage.BarStore
		closeFn func()
	)

	switch strings.ToLower(backend) {
	case BackendMemory:
		store, closeFn = memory.NewBarStore(), func() {}

	case BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Data.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
			d.Logger.Info("postgres migrations applied")
		}
		store, closeFn = pgstore.NewBarStore(pool), pool.Close

	case BackendClickhouse:
		var (
			conn *chstore.Conn
			err  error
		)
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Data.ClickhouseDSN)
			if err == nil {
				d.Logger.Info("clickhouse migrations applied")
			}
		} else {
			conn, err = chstore.NewConn(ctx, cfg.Data.ClickhouseDSN)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		store, closeFn = chstore.NewBarStore(conn), func() { _ = conn.Close() }

	case BackendRedis:
		client, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		store = redisstore.NewBarStore(client, redisstore.WithTTL(cfg.Redis.TTL.Duration))
		closeFn = func() { _ = client.Close() }

	default:
		return nil, nil, fmt.Errorf("store %q: %w", backend, ErrUnknownBackend)
	}

	return observability.InstrumentStore(store, strings.ToLower(backend), d.Metrics), closeFn, nil
}

// ServeMetrics exposes the registry on addr until ctx is cancelled. An empty
// addr disables the endpoint.
func (d *Dependencies) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.HandlerFor(d.Registry))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.Logger.Info("metrics endpoint listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// metricsSink counts loader diagnostics.
type metricsSink struct {
	m *observability.Metrics
}

func (s metricsSink) Report(d domain.Diagnostic) {
	s.m.DiagnosticReported(d.Code)
}
