// Package daemon manages the HabitLoop daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Data        DataConfig        `toml:"data"`
	API         APIConfig         `toml:"api"`
	Progression ProgressionConfig `toml:"progression"`
	Streak      StreakConfig      `toml:"streak"`
	Logging     LoggingConfig     `toml:"logging"`
}

// DataConfig controls local storage.
type DataConfig struct {
	Dir      string `toml:"dir"`
	CacheTTL string `toml:"cache_ttl"` // Go duration string
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	Metrics     bool     `toml:"metrics"`
}

// ProgressionConfig controls baseline windows and challenge difficulty.
type ProgressionConfig struct {
	WindowDays          int     `toml:"window_days"`
	SuccessPct          float64 `toml:"success_pct"`
	PartialPct          float64 `toml:"partial_pct"`
	FailuresForDemotion int     `toml:"failures_for_demotion"`
	HistoryMonths       int     `toml:"history_months"`
	MaxRetries          int     `toml:"max_retries"`
}

// StreakConfig controls consistency streak thresholds.
type StreakConfig struct {
	CompletionThreshold int    `toml:"completion_threshold"`
	TierThresholds      [3]int `toml:"tier_thresholds"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := habitloopHome()
	return Config{
		Data: DataConfig{
			Dir:      filepath.Join(homeDir, "data"),
			CacheTTL: "5m",
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7419,
			CORSOrigins: []string{"*"},
			Metrics:     false,
		},
		Progression: ProgressionConfig{
			WindowDays:          31,
			SuccessPct:          100,
			PartialPct:          70,
			FailuresForDemotion: 2,
			HistoryMonths:       12,
			MaxRetries:          3,
		},
		Streak: StreakConfig{
			CompletionThreshold: 3,
			TierThresholds:      [3]int{4, 8, 13},
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(homeDir, "habitloop.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
	}
}

// CacheTTL parses the configured cache TTL, falling back to the default on
// malformed input.
func (c Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Data.CacheTTL)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// LoadConfig reads config from ~/.habitloop/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(habitloopHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.habitloop/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(habitloopHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// habitloopHome returns the HabitLoop data directory.
func habitloopHome() string {
	if env := os.Getenv("HABITLOOP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".habitloop")
}

// HabitloopHome is exported for use by other packages.
func HabitloopHome() string {
	return habitloopHome()
}
