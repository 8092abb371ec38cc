// Package config provides configuration management for the densemap
// byte-density visualizer.
package config

import "time"

// Default configuration values for densemap.
const (
	// DefaultGridWidth is the single-file logical grid width in cells.
	DefaultGridWidth = 400

	// DefaultGridHeight is the single-file logical grid height in cells.
	DefaultGridHeight = 40

	// DefaultBatchGridWidth is the per-file grid width in multi-file mode.
	DefaultBatchGridWidth = 100

	// DefaultBatchGridHeight is the per-file grid height in multi-file mode.
	DefaultBatchGridHeight = 100

	// DefaultSampleBytes is the window size read per sample.
	DefaultSampleBytes = 8

	// MaxSampleBytes bounds the sample window size.
	MaxSampleBytes = 64

	// DefaultRefineInterval is the per-sample sleep of the unbounded
	// refinement loop.
	DefaultRefineInterval = time.Millisecond

	// DefaultBatchTick is the interval between multi-file batch ticks.
	DefaultBatchTick = 50 * time.Millisecond

	// DefaultBatchBudget is the total sample budget of one batch tick,
	// divided across all active files.
	DefaultBatchBudget = 500

	// DefaultExportWidth is the default export image width in pixels.
	DefaultExportWidth = 1920

	// DefaultExportHeight is the default export image height in pixels.
	DefaultExportHeight = 1080
)
