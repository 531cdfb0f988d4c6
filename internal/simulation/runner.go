// Package simulation wires a series source, the aligner and the engine into
// single configured runs.
package simulation

import (
	"context"
	"errors"
	"fmt"

	"backtest-lab/internal/alignment"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/loader"
	"backtest-lab/internal/strategy"
)

// Runner errors
var (
	ErrNoSource = errors.New("runner has no series source")
)

// Runner executes configured strategies against loaded series.
type Runner struct {
	source     loader.Source
	engineOpts []backtest.Option
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        loader.Source
	EngineOptions []backtest.Option // applied to every engine the runner builds
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:     opts.Source,
		engineOpts: opts.EngineOptions,
	}
}

// Load fetches the named series (all of them when assets is empty) and
// aligns them onto one timeline.
func (r *Runner) Load(ctx context.Context, assets []string) (*domain.AlignedDataset, error) {
	if r.source == nil {
		return nil, ErrNoSource
	}

	series, err := loader.LoadAll(ctx, r.source, assets)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}

	aligned, err := alignment.Align(series)
	if err != nil {
		return nil, fmt.Errorf("align series: %w", err)
	}
	return aligned, nil
}

// Run loads, aligns and simulates in one call.
// Steps:
//  1. Load and align series
//  2. Build strategy via strategy.FromConfig(cfg)
//  3. Run the engine
func (r *Runner) Run(ctx context.Context, assets []string, cfg domain.StrategyConfig, engineCfg backtest.Config) (*domain.Result, error) {
	aligned, err := r.Load(ctx, assets)
	if err != nil {
		return nil, err
	}
	return r.RunAligned(ctx, aligned, cfg, engineCfg)
}

// RunAligned simulates one strategy on an already aligned dataset. The dataset
// is only read, so concurrent calls may share it.
func (r *Runner) RunAligned(ctx context.Context, aligned *domain.AlignedDataset, cfg domain.StrategyConfig, engineCfg backtest.Config) (*domain.Result, error) {
	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	engine := backtest.NewEngine(engineCfg, r.engineOpts...)
	return engine.Run(ctx, aligned, strat)
}
