package engine

import (
	"fmt"
	"time"

	"github.com/jamesainslie/densemap/pkg/densemap/config"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Options configures a single-file sampling session.
type Options struct {
	// Path is the file to visualize.
	Path string

	// Geometry is the logical grid the file is mapped onto.
	Geometry types.Geometry

	// SampleBytes is the window size read per sample, 1..MaxSampleBytes.
	SampleBytes int

	// Workers is the worker-pool size. Zero means one per CPU.
	Workers int

	// Persistent keeps the session refining with random samples after
	// the exhaustive first pass until Stop is called.
	Persistent bool

	// RefineInterval is the per-sample sleep of the refinement loop.
	RefineInterval time.Duration

	// Seed seeds the per-worker random generators. Zero picks a random
	// seed; fixed seeds make shuffles and offsets reproducible.
	Seed uint64

	// OnProgress, if set, is called after each first-pass merge with the
	// number of merged samples and the grid total. It must be safe to
	// call from multiple goroutines.
	OnProgress func(sampled, total int)
}

// Validate checks the options and applies defaults for zero values.
func (o *Options) Validate() error {
	if o.Path == "" {
		return fmt.Errorf("%w: empty path", types.ErrOpen)
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
	if o.RefineInterval <= 0 {
		o.RefineInterval = config.DefaultRefineInterval
	}
	return nil
}
