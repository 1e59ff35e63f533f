// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoder: json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver selects the row store: sqlite, postgres or memory.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver-specific connection string.
	DBDSN string `koanf:"db_dsn"`

	// RedisURL enables the redis focus cache when set; otherwise the cache
	// lives in the row store.
	RedisURL string `koanf:"redis_url"`

	// CacheTTL is how long a computed focus stays fresh.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// WindowSize and MinPlayers are the calibration defaults.
	WindowSize int `koanf:"window_size"`
	MinPlayers int `koanf:"min_players"`

	// TargetPercentile is the percentile a player is measured against.
	TargetPercentile float64 `koanf:"target_percentile"`

	// SplitFloor and SplitCeiling bound each share of the practice split.
	SplitFloor   float64 `koanf:"split_floor"`
	SplitCeiling float64 `koanf:"split_ceiling"`

	// MaxTestResults caps how many recent results feed one recommendation.
	MaxTestResults int `koanf:"max_test_results"`

	// AdherenceThreshold marks players below it as at risk.
	AdherenceThreshold int `koanf:"adherence_threshold"`

	// AdherenceWindowDays is the trailing window for training events.
	AdherenceWindowDays int `koanf:"adherence_window_days"`

	// RosterConcurrency bounds parallel scoring in team focus.
	RosterConcurrency int `koanf:"roster_concurrency"`

	// RecalibrateInterval schedules background calibration; 0 disables it.
	RecalibrateInterval time.Duration `koanf:"recalibrate_interval"`

	// DedupeSize sets how many archive versions are remembered.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		DBDriver:            "sqlite",
		DBDSN:               "focus.db",
		CacheTTL:            24 * time.Hour,
		WindowSize:          3,
		MinPlayers:          100,
		TargetPercentile:    75,
		SplitFloor:          0.10,
		SplitCeiling:        0.50,
		MaxTestResults:      50,
		AdherenceThreshold:  50,
		AdherenceWindowDays: 30,
		RosterConcurrency:   8,
		RecalibrateInterval: 0,
		DedupeSize:          1024,
	}
}

// AdherenceWindow returns AdherenceWindowDays as a duration.
func (c *Config) AdherenceWindow() time.Duration {
	return time.Duration(c.AdherenceWindowDays) * 24 * time.Hour
}

// Validate checks field ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	switch c.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("db_driver %q is not one of sqlite, postgres, memory", c.DBDriver))
	}
	if c.DBDriver != "memory" && c.DBDSN == "" {
		problems = append(problems, "db_dsn must not be empty")
	}
	if c.CacheTTL <= 0 {
		problems = append(problems, "cache_ttl must be positive")
	}
	if c.WindowSize < 1 {
		problems = append(problems, "window_size must be at least 1")
	}
	if c.MinPlayers < 1 {
		problems = append(problems, "min_players must be at least 1")
	}
	if c.TargetPercentile <= 0 || c.TargetPercentile > 100 {
		problems = append(problems, "target_percentile must be in (0, 100]")
	}
	if c.SplitFloor < 0 || c.SplitCeiling > 1 || 4*c.SplitFloor > 1 || 4*c.SplitCeiling < 1 {
		problems = append(problems, "split_floor and split_ceiling must satisfy 4*floor <= 1 <= 4*ceiling")
	}
	if c.MaxTestResults < 1 {
		problems = append(problems, "max_test_results must be at least 1")
	}
	if c.AdherenceThreshold < 0 || c.AdherenceThreshold > 100 {
		problems = append(problems, "adherence_threshold must be in [0, 100]")
	}
	if c.AdherenceWindowDays < 1 {
		problems = append(problems, "adherence_window_days must be at least 1")
	}
	if c.RosterConcurrency < 1 {
		problems = append(problems, "roster_concurrency must be at least 1")
	}
	if c.RecalibrateInterval < 0 {
		problems = append(problems, "recalibrate_interval must not be negative")
	}
	if c.DedupeSize < 1 {
		problems = append(problems, "dedupe_size must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
