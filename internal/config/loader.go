package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BACKTEST_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides lets operators inject DSNs and secrets without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "BACKTEST_LOG_LEVEL")
	setStr(&cfg.MetricsAddr, "BACKTEST_METRICS_ADDR")

	// Run
	setFloat64(&cfg.Run.Cash, "BACKTEST_RUN_CASH")
	setFloat64(&cfg.Run.Commission, "BACKTEST_RUN_COMMISSION")
	setBool(&cfg.Run.TradeOnClose, "BACKTEST_RUN_TRADE_ON_CLOSE")
	setBool(&cfg.Run.Normalize, "BACKTEST_RUN_NORMALIZE")
	setStr(&cfg.Run.BenchmarkAsset, "BACKTEST_RUN_BENCHMARK_ASSET")
	setInt(&cfg.Run.MaxBars, "BACKTEST_RUN_MAX_BARS")
	setStr(&cfg.Run.Scenario, "BACKTEST_RUN_SCENARIO")

	// Strategy
	setStr(&cfg.Strategy.Type, "BACKTEST_STRATEGY_TYPE")
	setStr(&cfg.Strategy.Asset, "BACKTEST_STRATEGY_ASSET")
	setFloat64(&cfg.Strategy.Fraction, "BACKTEST_STRATEGY_FRACTION")

	// Data
	setStr(&cfg.Data.Source, "BACKTEST_DATA_SOURCE")
	setStr(&cfg.Data.Dir, "BACKTEST_DATA_DIR")
	setStringSlice(&cfg.Data.Assets, "BACKTEST_DATA_ASSETS")
	setStr(&cfg.Data.PostgresDSN, "BACKTEST_DATA_POSTGRES_DSN")
	setStr(&cfg.Data.ClickhouseDSN, "BACKTEST_DATA_CLICKHOUSE_DSN")

	// S3
	setStr(&cfg.S3.Endpoint, "BACKTEST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BACKTEST_S3_REGION")
	setStr(&cfg.S3.Bucket, "BACKTEST_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "BACKTEST_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "BACKTEST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BACKTEST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BACKTEST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BACKTEST_S3_FORCE_PATH_STYLE")

	// Redis
	setBool(&cfg.Redis.Enabled, "BACKTEST_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BACKTEST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BACKTEST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BACKTEST_REDIS_DB")
	setDuration(&cfg.Redis.TTL, "BACKTEST_REDIS_TTL")

	// Sweep
	setInt(&cfg.Sweep.Parallelism, "BACKTEST_SWEEP_PARALLELISM")
	setStringSlice(&cfg.Sweep.Scenarios, "BACKTEST_SWEEP_SCENARIOS")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
