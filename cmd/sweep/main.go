// Command sweep runs every configured strategy under every configured
// scenario in parallel and prints a ranked comparison.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/app"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/orchestrator"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/simulation"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	parallelism := flag.Int("parallelism", 0, "Max concurrent runs (overrides config)")
	failFast := flag.Bool("fail-fast", false, "Stop the sweep on the first failing run")
	outputDir := flag.String("output-dir", "", "Write sweep.md and sweep.csv here")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *parallelism > 0 {
		cfg.Sweep.Parallelism = *parallelism
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

	if err := run(ctx, cfg, logger, *failFast, *outputDir); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("sweep cancelled")
			return
		}
		logger.Error("sweep failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, failFast bool, outputDir string) error {
	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		if err := deps.ServeMetrics(ctx, cfg.MetricsAddr); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()

	runner := simulation.NewRunner(simulation.RunnerOptions{
		Source: deps.Source,
		EngineOptions: []backtest.Option{
			backtest.WithSink(deps.RunSink),
			backtest.WithRecorder(deps.Metrics),
		},
	})

	aligned, err := runner.Load(ctx, cfg.Data.Assets)
	if err != nil {
		return err
	}
	deps.Metrics.SeriesLoaded.Add(float64(len(aligned.Assets)))

	jobs := orchestrator.Jobs(sweepStrategies(cfg), sweepScenarios(cfg))
	logger.Info("sweep starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("parallelism", cfg.Sweep.Parallelism),
		zap.Int("bars", aligned.Len()),
	)

	start := time.Now()
	orch := orchestrator.New(orchestrator.Options{
		Runner:      runner,
		Base:        cfg.Engine(),
		Parallelism: cfg.Sweep.Parallelism,
		FailFast:    failFast,
	})
	results, err := orch.Sweep(ctx, aligned, jobs)
	if err != nil {
		return err
	}

	runs := toReportRuns(results)
	logger.Info("sweep complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("failed", len(results)-len(orchestrator.Ranked(results))),
	)

	report := reporting.NewGenerator().Generate(aligned, runs)
	md := reporting.RenderMarkdown(report)
	fmt.Print(md)

	if outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "sweep.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write sweep.md: %w", err)
	}
	f, err := os.Create(filepath.Join(outputDir, "sweep.csv"))
	if err != nil {
		return fmt.Errorf("create sweep.csv: %w", err)
	}
	if err := reporting.WriteSummaryCSV(f, report.Runs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write sweep.csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close sweep.csv: %w", err)
	}
	logger.Info("report written", zap.String("dir", outputDir))
	return nil
}

// sweepStrategies falls back to the single [strategy] section.
func sweepStrategies(cfg *config.Config) []domain.StrategyConfig {
	if len(cfg.Sweep.Strategies) == 0 {
		return []domain.StrategyConfig{cfg.Strategy.Domain()}
	}
	out := make([]domain.StrategyConfig, len(cfg.Sweep.Strategies))
	for i, s := range cfg.Sweep.Strategies {
		out[i] = s.Domain()
	}
	return out
}

// sweepScenarios resolves scenario IDs. Validate has already rejected unknown ones.
func sweepScenarios(cfg *config.Config) []domain.ScenarioConfig {
	var out []domain.ScenarioConfig
	for _, id := range cfg.Sweep.Scenarios {
		if sc, ok := domain.ScenarioByID(id); ok {
			out = append(out, sc)
		}
	}
	return out
}

// toReportRuns lists successful runs best first, then failures in job order.
func toReportRuns(results []orchestrator.JobResult) []reporting.Run {
	var runs []reporting.Run
	for _, r := range orchestrator.Ranked(results) {
		runs = append(runs, reporting.Run{Label: r.Job.Label(), Result: r.Result})
	}
	for _, r := range results {
		if r.Err != nil {
			runs = append(runs, reporting.Run{Label: r.Job.Label(), Err: r.Err})
		}
	}
	return runs
}
