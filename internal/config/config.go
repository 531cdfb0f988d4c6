// Package config defines the TOML run configuration shared by the CLIs.
package config

import (
	"fmt"
	"strings"
	"time"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel    string         `toml:"log_level"`
	MetricsAddr string         `toml:"metrics_addr"`
	Run         RunConfig      `toml:"run"`
	Strategy    StrategyConfig `toml:"strategy"`
	Data        DataConfig     `toml:"data"`
	S3          S3Config       `toml:"s3"`
	Redis       RedisConfig    `toml:"redis"`
	Sweep       SweepConfig    `toml:"sweep"`
}

// RunConfig holds the engine parameters.
type RunConfig struct {
	Cash           float64 `toml:"cash"`
	Commission     float64 `toml:"commission"`
	TradeOnClose   bool    `toml:"trade_on_close"`
	Normalize      bool    `toml:"normalize"`
	BenchmarkAsset string  `toml:"benchmark_asset"`
	MaxBars        int     `toml:"max_bars"`
	// Scenario names a predefined cost/fill preset that overrides
	// commission and trade_on_close when set.
	Scenario string `toml:"scenario"`
}

// StrategyConfig selects and parameterizes a strategy. Zero values mean
// "use the strategy default".
type StrategyConfig struct {
	Type        string  `toml:"type"`
	Asset       string  `toml:"asset"`
	Fraction    float64 `toml:"fraction"`
	LegFraction float64 `toml:"leg_fraction"`
	ShortPeriod int     `toml:"short_period"`
	LongPeriod  int     `toml:"long_period"`
}

// DataConfig selects where series come from.
type DataConfig struct {
	Source        string   `toml:"source"` // dir | s3 | postgres | clickhouse
	Dir           string   `toml:"dir"`
	Assets        []string `toml:"assets"`
	PostgresDSN   string   `toml:"postgres_dsn"`
	ClickhouseDSN string   `toml:"clickhouse_dsn"`
}

// S3Config holds object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RedisConfig enables the read-through series cache.
type RedisConfig struct {
	Enabled  bool     `toml:"enabled"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	TTL      duration `toml:"ttl"`
}

// SweepConfig drives cmd/sweep.
type SweepConfig struct {
	Parallelism int              `toml:"parallelism"`
	Scenarios   []string         `toml:"scenarios"`
	Strategies  []StrategyConfig `toml:"strategies"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with every field at its default.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Run: RunConfig{
			Cash:         backtest.DefaultCash,
			TradeOnClose: true,
		},
		Strategy: StrategyConfig{
			Type: "crossover",
		},
		Data: DataConfig{
			Source: "dir",
			Dir:    "data",
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  duration{24 * time.Hour},
		},
		Sweep: SweepConfig{
			Parallelism: 4,
		},
	}
}

var (
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validSources   = map[string]bool{"dir": true, "s3": true, "postgres": true, "clickhouse": true}
	validTypes     = map[string]bool{
		strings.ToLower(domain.StrategyTypeCrossover):  true,
		strings.ToLower(domain.StrategyTypeBuyAndHold): true,
		strings.ToLower(domain.StrategyTypeMACross):    true,
	}
)

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Run.Cash < 0 {
		errs = append(errs, "run: cash must not be negative")
	}
	if c.Run.Commission < 0 || c.Run.Commission >= 1 {
		errs = append(errs, "run: commission must be in [0, 1)")
	}
	if c.Run.MaxBars < 0 {
		errs = append(errs, "run: max_bars must not be negative")
	}
	if c.Run.Scenario != "" {
		if _, ok := domain.ScenarioByID(c.Run.Scenario); !ok {
			errs = append(errs, fmt.Sprintf("run: unknown scenario %q", c.Run.Scenario))
		}
	}

	errs = append(errs, c.Strategy.problems("strategy")...)

	if !validSources[c.Data.Source] {
		errs = append(errs, fmt.Sprintf("data: unknown source %q (valid: dir, s3, postgres, clickhouse)", c.Data.Source))
	}
	switch c.Data.Source {
	case "dir":
		if c.Data.Dir == "" {
			errs = append(errs, "data: dir must be set for source dir")
		}
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must be set for source s3")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must be set for source s3")
		}
	case "postgres":
		if c.Data.PostgresDSN == "" {
			errs = append(errs, "data: postgres_dsn must be set for source postgres")
		}
	case "clickhouse":
		if c.Data.ClickhouseDSN == "" {
			errs = append(errs, "data: clickhouse_dsn must be set for source clickhouse")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set when enabled")
	}
	if c.Redis.TTL.Duration < 0 {
		errs = append(errs, "redis: ttl must not be negative")
	}

	if c.Sweep.Parallelism < 1 {
		errs = append(errs, "sweep: parallelism must be at least 1")
	}
	for _, id := range c.Sweep.Scenarios {
		if _, ok := domain.ScenarioByID(id); !ok {
			errs = append(errs, fmt.Sprintf("sweep: unknown scenario %q", id))
		}
	}
	for i, s := range c.Sweep.Strategies {
		errs = append(errs, s.problems(fmt.Sprintf("sweep.strategies[%d]", i))...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (s StrategyConfig) problems(section string) []string {
	var errs []string
	if !validTypes[strings.ToLower(s.Type)] {
		errs = append(errs, fmt.Sprintf("%s: unknown type %q (valid: crossover, buy_and_hold, ma_cross)", section, s.Type))
	}
	if s.Fraction < 0 || s.Fraction > 1 {
		errs = append(errs, section+": fraction must be in [0, 1]")
	}
	if s.LegFraction < 0 || s.LegFraction > 1 {
		errs = append(errs, section+": leg_fraction must be in [0, 1]")
	}
	if s.ShortPeriod < 0 || s.LongPeriod < 0 {
		errs = append(errs, section+": periods must not be negative")
	}
	return errs
}

// Engine converts the run section into an engine config, applying the scenario preset.
func (c *Config) Engine() backtest.Config {
	cfg := backtest.Config{
		Cash:           c.Run.Cash,
		Commission:     c.Run.Commission,
		TradeOnClose:   c.Run.TradeOnClose,
		Normalize:      c.Run.Normalize,
		BenchmarkAsset: c.Run.BenchmarkAsset,
		MaxBars:        c.Run.MaxBars,
	}
	if sc, ok := domain.ScenarioByID(c.Run.Scenario); ok {
		cfg = cfg.WithScenario(sc)
	}
	return cfg
}

// Domain converts the section into the strategy factory input.
func (s StrategyConfig) Domain() domain.StrategyConfig {
	out := domain.StrategyConfig{
		StrategyType: strings.ToUpper(s.Type),
		Asset:        s.Asset,
	}
	if s.Fraction > 0 {
		f := s.Fraction
		out.Fraction = &f
	}
	if s.LegFraction > 0 {
		f := s.LegFraction
		out.LegFraction = &f
	}
	if s.ShortPeriod > 0 {
		p := s.ShortPeriod
		out.ShortPeriod = &p
	}
	if s.LongPeriod > 0 {
		p := s.LongPeriod
		out.LongPeriod = &p
	}
	return out
}
