package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the stride CLI.
// Values are populated from .stride.yaml, STRIDE_* env vars, and CLI flags.
type Config struct {
	MaxWorkers    int     `mapstructure:"max_workers"`
	Parallel      bool    `mapstructure:"parallel"`
	TelemetryPath string  `mapstructure:"telemetry_path"`
	Verbose       bool    `mapstructure:"verbose"`
	FrameBudgetMS float64 `mapstructure:"frame_budget_ms"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags. A max_workers of
// zero means one worker per CPU.
func Load() (Config, error) {
	viper.SetDefault("max_workers", 0)
	viper.SetDefault("parallel", true)
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("frame_budget_ms", 16.67)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
