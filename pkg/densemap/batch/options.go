package batch

import (
	"fmt"
	"time"

	"github.com/jamesainslie/densemap/pkg/densemap/config"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Options configures the multi-file batch scheduler.
type Options struct {
	// Dir is the directory to discover files in.
	Dir string

	// Geometry is the per-file logical grid.
	Geometry types.Geometry

	// SampleBytes is the window size read per sample.
	SampleBytes int

	// Workers bounds the number of one-shot workers dispatched per tick.
	Workers int

	// Tick is the interval between batch ticks.
	Tick time.Duration

	// Budget is the total number of samples scheduled per tick, divided
	// fairly across all active files.
	Budget int

	// Recursive extends discovery below the first directory level.
	Recursive bool

	// Seed seeds shuffles and sample offsets. Zero picks a random seed.
	Seed uint64

	// OnDiscover, if set, is called once per qualifying file, including
	// files added mid-run. Must be safe for concurrent use.
	OnDiscover func(path string, size int64)
}

// Validate checks the options and applies defaults for zero values.
func (o *Options) Validate() error {
	if o.Dir == "" {
		return fmt.Errorf("%w: empty directory", types.ErrOpen)
	}
	if err := o.Geometry.Validate(); err != nil {
		return err
	}
	if o.SampleBytes < 1 {
		o.SampleBytes = config.DefaultSampleBytes
	}
	if o.SampleBytes > config.MaxSampleBytes {
		return fmt.Errorf("sample bytes %d exceeds maximum %d", o.SampleBytes, config.MaxSampleBytes)
	}
	if o.Workers < 1 {
		o.Workers = config.DefaultWorkers()
	}
	if o.Tick <= 0 {
		o.Tick = config.DefaultBatchTick
	}
	if o.Budget < 1 {
		o.Budget = config.DefaultBatchBudget
	}
	return nil
}
