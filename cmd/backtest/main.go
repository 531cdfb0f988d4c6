// Command backtest runs one strategy over a set of aligned series and prints
// a report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"backtest-lab/internal/app"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/simulation"
	"backtest-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML configuration file")
	strategyType := flag.String("strategy", "", "Strategy: crossover, buy_and_hold, ma_cross (overrides config)")
	asset := flag.String("asset", "", "Asset traded by buy_and_hold and ma_cross (overrides config)")
	assets := flag.String("assets", "", "Comma-separated series to load (default: all)")
	scenario := flag.String("scenario", "", "Scenario: frictionless, retail, pessimistic (overrides config)")
	outputDir := flag.String("output-dir", "", "Write report.md, trades.csv and timeseries.csv here")
	outputJSON := flag.Bool("json", false, "Print the full result as JSON instead of Markdown")
	verify := flag.Bool("verify", false, "Replay the run and fail if the replay diverges")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *strategyType != "" {
		cfg.Strategy.Type = *strategyType
	}
	if *asset != "" {
		cfg.Strategy.Asset = *asset
	}
	if *assets != "" {
		cfg.Data.Assets = splitList(*assets)
	}
	if *scenario != "" {
		cfg.Run.Scenario = *scenario
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

	if err := run(ctx, cfg, logger, options{outputDir: *outputDir, asJSON: *outputJSON, verify: *verify}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("backtest cancelled")
			return
		}
		logger.Error("backtest failed", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	outputDir string
	asJSON    bool
	verify    bool
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts options) error {
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
	logger.Info("series aligned",
		zap.Strings("assets", aligned.Names()),
		zap.Int("bars", aligned.Len()),
	)

	strategyCfg := cfg.Strategy.Domain()
	res, err := runner.RunAligned(ctx, aligned, strategyCfg, cfg.Engine())
	if err != nil {
		return err
	}
	logger.Info("backtest complete",
		zap.String("run_id", res.RunID),
		zap.String("strategy", res.Strategy),
		zap.Int("trades", res.Stats.NumTrades),
		zap.Float64("total_return", res.Stats.TotalReturn),
		zap.Int("diagnostics", len(res.Diagnostics)),
	)

	if opts.verify {
		vr, err := verification.Verify(ctx, runner, aligned, strategyCfg, cfg.Engine(), res)
		if err != nil {
			return err
		}
		if !vr.Match {
			for _, d := range vr.Divergences {
				logger.Error("replay divergence",
					zap.String("field", d.Field),
					zap.Any("expected", d.Expected),
					zap.Any("actual", d.Actual),
				)
			}
			return fmt.Errorf("replay of %s diverged in %d fields", vr.RunID, len(vr.Divergences))
		}
		logger.Info("replay verified", zap.String("run_id", vr.RunID))
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	report := reporting.NewGenerator().Generate(aligned, []reporting.Run{{Label: res.Strategy, Result: res}})
	md := reporting.RenderMarkdown(report)
	if !opts.asJSON {
		fmt.Print(md)
	}

	if opts.outputDir == "" {
		return nil
	}
	files := map[string]func(io.Writer) error{
		"report.md": func(w io.Writer) error {
			_, err := io.WriteString(w, md)
			return err
		},
		"trades.csv": func(w io.Writer) error {
			return reporting.WriteTradesCSV(w, res.Trades)
		},
		"timeseries.csv": func(w io.Writer) error {
			return reporting.WriteTimeSeriesCSV(w, res.TimeSeries, aligned.Names())
		},
	}
	if err := writeFiles(opts.outputDir, files); err != nil {
		return err
	}
	logger.Info("report written", zap.String("dir", opts.outputDir))
	return nil
}

func writeFiles(dir string, files map[string]func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for name, write := range files {
		if err := writeFile(filepath.Join(dir, name), write); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
