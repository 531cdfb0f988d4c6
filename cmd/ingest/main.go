// Command ingest loads CSV series from a directory or S3 bucket into a bar
// store so later runs can read them back from the database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"backtest-lab/internal/app"
	"backtest-lab/internal/config"
	"backtest-lab/internal/loader"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	from := flag.String("from", "dir", "Input: dir, s3")
	to := flag.String("to", "postgres", "Target store: postgres, clickhouse, redis, memory")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations before writing")
	replace := flag.Bool("replace", false, "Delete existing bars of each series before writing")
	assets := flag.String("assets", "", "Comma-separated series to ingest (default: all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := ingestOptions{
		from:    *from,
		to:      *to,
		migrate: *migrate,
		replace: *replace,
	}
	for _, a := range strings.Split(*assets, ",") {
		if a = strings.TrimSpace(a); a != "" {
			opts.assets = append(opts.assets, a)
		}
	}

	if err := run(ctx, cfg, logger, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("ingest cancelled")
			return
		}
		logger.Error("ingest failed", zap.Error(err))
		os.Exit(1)
	}
}

type ingestOptions struct {
	from, to string
	migrate  bool
	replace  bool
	assets   []string
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ingestOptions) error {
	deps := app.NewDependencies(logger)

	go func() {
		if err := deps.ServeMetrics(ctx, cfg.MetricsAddr); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()

	src, err := deps.OpenFileSource(ctx, opts.from, cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := deps.OpenStore(ctx, opts.to, cfg, opts.migrate)
	if err != nil {
		return err
	}
	defer closeStore()

	names := opts.assets
	if len(names) == 0 {
		if names, err = src.List(ctx); err != nil {
			return fmt.Errorf("list series: %w", err)
		}
	}
	logger.Info("ingest starting",
		zap.String("from", opts.from),
		zap.String("to", opts.to),
		zap.Int("series", len(names)),
	)

	var failed int
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := ingestOne(ctx, src, store, name, opts.replace)
		if err != nil {
			failed++
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Warn("series already stored, use -replace to overwrite", zap.String("series", name))
				continue
			}
			logger.Error("series ingest failed", zap.String("series", name), zap.Error(err))
			continue
		}
		deps.Metrics.SeriesLoaded.Inc()
		logger.Info("series ingested", zap.String("series", name), zap.Int("bars", n))
	}

	logger.Info("ingest complete",
		zap.Int("ok", len(names)-failed),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d series failed", failed, len(names))
	}
	return nil
}

func ingestOne(ctx context.Context, src loader.Source, store storage.BarStore, name string, replace bool) (int, error) {
	series, err := src.Fetch(ctx, name)
	if err != nil {
		return 0, err
	}
	if replace {
		if err := store.DeleteSymbol(ctx, name); err != nil {
			return 0, fmt.Errorf("delete %s: %w", name, err)
		}
	}
	if err := loader.Save(ctx, store, &series); err != nil {
		return 0, err
	}
	return series.Len(), nil
}
