package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Grid.Width != DefaultGridWidth {
		t.Errorf("Grid.Width = %d, want %d", cfg.Grid.Width, DefaultGridWidth)
	}
	if cfg.Grid.Height != DefaultGridHeight {
		t.Errorf("Grid.Height = %d, want %d", cfg.Grid.Height, DefaultGridHeight)
	}
	if cfg.SampleBytes != DefaultSampleBytes {
		t.Errorf("SampleBytes = %d, want %d", cfg.SampleBytes, DefaultSampleBytes)
	}
	if cfg.Workers != DefaultWorkers() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers())
	}
	if cfg.RefineInterval != DefaultRefineInterval {
		t.Errorf("RefineInterval = %v, want %v", cfg.RefineInterval, DefaultRefineInterval)
	}
	if cfg.Batch.Grid.Width != DefaultBatchGridWidth {
		t.Errorf("Batch.Grid.Width = %d, want %d", cfg.Batch.Grid.Width, DefaultBatchGridWidth)
	}
	if cfg.Batch.Tick != DefaultBatchTick {
		t.Errorf("Batch.Tick = %v, want %v", cfg.Batch.Tick, DefaultBatchTick)
	}
	if cfg.Batch.Budget != DefaultBatchBudget {
		t.Errorf("Batch.Budget = %d, want %d", cfg.Batch.Budget, DefaultBatchBudget)
	}
	if !cfg.Batch.Watch {
		t.Error("Batch.Watch = false, want true")
	}
	if cfg.Batch.Recursive {
		t.Error("Batch.Recursive = true, want false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "densemap")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
grid:
  width: 200
  height: 20
sample_bytes: 16
workers: 3
refine_interval: 5ms
batch:
  grid:
    width: 64
    height: 64
  tick: 100ms
  budget: 250
  recursive: true
  watch: false
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Grid.Width != 200 {
		t.Errorf("Grid.Width = %d, want 200", cfg.Grid.Width)
	}
	if cfg.Grid.Height != 20 {
		t.Errorf("Grid.Height = %d, want 20", cfg.Grid.Height)
	}
	if cfg.SampleBytes != 16 {
		t.Errorf("SampleBytes = %d, want 16", cfg.SampleBytes)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.RefineInterval != 5*time.Millisecond {
		t.Errorf("RefineInterval = %v, want 5ms", cfg.RefineInterval)
	}
	if cfg.Batch.Grid.Width != 64 || cfg.Batch.Grid.Height != 64 {
		t.Errorf("Batch.Grid = %dx%d, want 64x64", cfg.Batch.Grid.Width, cfg.Batch.Grid.Height)
	}
	if cfg.Batch.Tick != 100*time.Millisecond {
		t.Errorf("Batch.Tick = %v, want 100ms", cfg.Batch.Tick)
	}
	if cfg.Batch.Budget != 250 {
		t.Errorf("Batch.Budget = %d, want 250", cfg.Batch.Budget)
	}
	if !cfg.Batch.Recursive {
		t.Error("Batch.Recursive = false, want true")
	}
	if cfg.Batch.Watch {
		t.Error("Batch.Watch = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("DENSEMAP_SAMPLE_BYTES", "32")
	t.Setenv("DENSEMAP_GRID_WIDTH", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SampleBytes != 32 {
		t.Errorf("SampleBytes = %d, want 32", cfg.SampleBytes)
	}
	if cfg.Grid.Width != 120 {
		t.Errorf("Grid.Width = %d, want 120", cfg.Grid.Width)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != filepath.Join("/custom/xdg", "densemap") {
		t.Errorf("ConfigDir() = %q", dir)
	}
}
