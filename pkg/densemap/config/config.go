package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// GridConfig holds the logical grid dimensions for one visualization mode.
type GridConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// BatchConfig configures the multi-file batch scheduler.
type BatchConfig struct {
	Grid      GridConfig    `mapstructure:"grid"`
	Tick      time.Duration `mapstructure:"tick"`
	Budget    int           `mapstructure:"budget"`
	Recursive bool          `mapstructure:"recursive"`
	Watch     bool          `mapstructure:"watch"`
}

// Config represents the application configuration.
type Config struct {
	Grid           GridConfig    `mapstructure:"grid"`
	SampleBytes    int           `mapstructure:"sample_bytes"`
	Workers        int           `mapstructure:"workers"`
	RefineInterval time.Duration `mapstructure:"refine_interval"`
	Batch          BatchConfig   `mapstructure:"batch"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// DefaultWorkers returns the default worker-pool size: one worker per
// available CPU.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/densemap/config.yaml
//   - $HOME/.config/densemap/config.yaml
//
// Environment variables are prefixed with DENSEMAP_ (e.g.,
// DENSEMAP_SAMPLE_BYTES).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "densemap"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "densemap"))

	v.SetEnvPrefix("DENSEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults registers every configuration default on v. Shared between
// Load and the CLI's flag-bound viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("grid.width", DefaultGridWidth)
	v.SetDefault("grid.height", DefaultGridHeight)
	v.SetDefault("sample_bytes", DefaultSampleBytes)
	v.SetDefault("workers", DefaultWorkers())
	v.SetDefault("refine_interval", DefaultRefineInterval)

	v.SetDefault("batch.grid.width", DefaultBatchGridWidth)
	v.SetDefault("batch.grid.height", DefaultBatchGridHeight)
	v.SetDefault("batch.tick", DefaultBatchTick)
	v.SetDefault("batch.budget", DefaultBatchBudget)
	v.SetDefault("batch.recursive", false)
	v.SetDefault("batch.watch", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{
		"engine":  "info",
		"batch":   "info",
		"watcher": "warn",
		"export":  "info",
		"tui":     "info",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "densemap"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "densemap"), nil
}
