// Package export provides the one-shot full-resolution renderer and the
// image output helpers. Unlike the live engine, export visits every
// coordinate of a caller-specified geometry exactly once in deterministic
// row-major order; nothing is displayed incrementally, so there is no
// shuffle.
package export

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/jamesainslie/densemap/pkg/densemap/config"
	"github.com/jamesainslie/densemap/pkg/densemap/logging"
	"github.com/jamesainslie/densemap/pkg/densemap/region"
	"github.com/jamesainslie/densemap/pkg/densemap/sampler"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// RenderOptions configures a one-shot render.
type RenderOptions struct {
	// Path is the file to render.
	Path string

	// Geometry is the output grid, typically much larger than the live
	// grids (one cell per pixel).
	Geometry types.Geometry

	// SampleBytes is the window size read per coordinate.
	SampleBytes int

	// Seed seeds the in-region offset randomness. Zero picks a random
	// seed. Offsets are random; visitation order never is.
	Seed uint64

	// OnSample, if set, receives one event per coordinate that yielded
	// data.
	OnSample func(types.SampleEvent)

	// OnProgress, if set, is called after every coordinate with
	// monotonically non-decreasing processed counts.
	OnProgress func(processed, total int)
}

// Validate checks the options and applies defaults.
func (o *RenderOptions) Validate() error {
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
	return nil
}

// Renderer performs one exhaustive single-threaded pass.
type Renderer struct {
	opts RenderOptions
}

// NewRenderer validates opts and builds a renderer.
func NewRenderer(opts RenderOptions) (*Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{opts: opts}, nil
}

// Run samples every coordinate once in row-major scan order. The same
// preconditions as a live session apply; read failures skip the
// coordinate but still advance progress.
func (r *Renderer) Run(ctx context.Context) error {
	log := logging.Get("export")

	info, err := os.Stat(r.opts.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrOpen, r.opts.Path, err)
	}

	minSize := r.opts.Geometry.MinFileSize(r.opts.SampleBytes)
	if info.Size() < minSize {
		return fmt.Errorf("%w: %s is %d bytes, need %d for a %s grid",
			types.ErrTooSmall, r.opts.Path, info.Size(), minSize, r.opts.Geometry)
	}

	reader, err := sampler.OpenShared(r.opts.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	mapping := region.NewMapping(info.Size(), r.opts.Geometry, r.opts.SampleBytes)

	seed := r.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	log.Info("export started",
		"path", r.opts.Path,
		"grid", r.opts.Geometry.String(),
		"size", info.Size())

	total := r.opts.Geometry.TotalPoints()
	processed := 0
	buf := make([]byte, r.opts.SampleBytes)

	for y := 0; y < r.opts.Geometry.Height; y++ {
		for x := 0; x < r.opts.Geometry.Width; x++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			c := types.Coord{X: x, Y: y}
			pos := mapping.SamplePos(c, rng)
			n, err := reader.ReadWindow(pos, buf)
			if err == nil && n > 0 {
				if r.opts.OnSample != nil {
					r.opts.OnSample(types.SampleEvent{
						Path:  r.opts.Path,
						Coord: c,
						Score: sampler.Score(buf[:n]),
					})
				}
			}

			processed++
			if r.opts.OnProgress != nil {
				r.opts.OnProgress(processed, total)
			}
		}
	}

	log.Info("export complete", "path", r.opts.Path, "points", total)
	return nil
}
