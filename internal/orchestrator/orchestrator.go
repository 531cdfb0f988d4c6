// Package orchestrator runs many strategy/scenario combinations over one
// aligned dataset in parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/simulation"
)

// DefaultParallelism bounds concurrent runs when Options.Parallelism is unset.
const DefaultParallelism = 4

// ErrNoRunner is returned when the orchestrator was built without a runner.
var ErrNoRunner = errors.New("orchestrator has no runner")

// Job is one (strategy, scenario) combination. A zero Scenario runs with the
// base engine config unchanged.
type Job struct {
	Strategy domain.StrategyConfig
	Scenario domain.ScenarioConfig
}

// Label identifies the job in reports and logs.
func (j Job) Label() string {
	if j.Scenario.ScenarioID == "" {
		return j.Strategy.StrategyType
	}
	return j.Strategy.StrategyType + "/" + j.Scenario.ScenarioID
}

// JobResult is the outcome of one job. Exactly one of Result and Err is set.
type JobResult struct {
	Job    Job
	Result *domain.Result
	Err    error
}

// Orchestrator coordinates parallel runs.
type Orchestrator struct {
	runner      *simulation.Runner
	base        backtest.Config
	parallelism int
	failFast    bool
}

// Options for creating Orchestrator.
type Options struct {
	Runner      *simulation.Runner
	Base        backtest.Config // engine config before scenario overrides
	Parallelism int             // max concurrent runs; 0 means DefaultParallelism
	FailFast    bool            // cancel remaining jobs on the first error
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	p := opts.Parallelism
	if p <= 0 {
		p = DefaultParallelism
	}
	return &Orchestrator{
		runner:      opts.Runner,
		base:        opts.Base,
		parallelism: p,
		failFast:    opts.FailFast,
	}
}

// Jobs is the cross product of strategies and scenarios. No scenarios means
// one job per strategy with the base config.
func Jobs(strategies []domain.StrategyConfig, scenarios []domain.ScenarioConfig) []Job {
	if len(scenarios) == 0 {
		jobs := make([]Job, len(strategies))
		for i, s := range strategies {
			jobs[i] = Job{Strategy: s}
		}
		return jobs
	}

	jobs := make([]Job, 0, len(strategies)*len(scenarios))
	for _, s := range strategies {
		for _, sc := range scenarios {
			jobs = append(jobs, Job{Strategy: s, Scenario: sc})
		}
	}
	return jobs
}

// Sweep runs every job against aligned. Each job owns its engine and ledger;
// aligned is shared read-only. Results come back in job order. Without
// FailFast a failing job is recorded in its JobResult and the sweep goes on.
func (o *Orchestrator) Sweep(ctx context.Context, aligned *domain.AlignedDataset, jobs []Job) ([]JobResult, error) {
	if o.runner == nil {
		return nil, ErrNoRunner
	}

	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)

	for i, job := range jobs {
		g.Go(func() error {
			cfg := o.base
			if job.Scenario.ScenarioID != "" {
				cfg = cfg.WithScenario(job.Scenario)
			}

			res, err := o.runner.RunAligned(gctx, aligned, job.Strategy, cfg)
			results[i] = JobResult{Job: job, Result: res, Err: err}
			if err != nil && o.failFast {
				return fmt.Errorf("job %s: %w", job.Label(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Ranked returns the successful results ordered by total return, best first.
// Ties keep job order.
func Ranked(results []JobResult) []JobResult {
	var ok []JobResult
	for _, r := range results {
		if r.Err == nil && r.Result != nil {
			ok = append(ok, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].Result.Stats.TotalReturn > ok[j].Result.Stats.TotalReturn
	})
	return ok
}
