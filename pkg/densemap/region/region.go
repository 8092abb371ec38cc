// Package region maps logical grid coordinates onto byte ranges of a file.
//
// A file of fileSize bytes is divided into geometry.TotalPoints() regions of
// chunkSize = fileSize / totalPoints bytes each. Chunk size is real-valued;
// region starts are floored so adjacent regions never overlap by more than
// rounding. The mapping is pure: identical inputs always produce identical
// chunk boundaries.
package region

import (
	"math/rand/v2"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Mapping is the derived chunk geometry for one (file, grid) pair.
type Mapping struct {
	FileSize    int64
	Geometry    types.Geometry
	SampleBytes int

	chunk float64
}

// NewMapping derives the chunk geometry for a file. The minimum-size
// precondition (fileSize >= totalPoints*sampleBytes) is owned by the
// schedulers, not checked here.
func NewMapping(fileSize int64, geom types.Geometry, sampleBytes int) Mapping {
	return Mapping{
		FileSize:    fileSize,
		Geometry:    geom,
		SampleBytes: sampleBytes,
		chunk:       float64(fileSize) / float64(geom.TotalPoints()),
	}
}

// ChunkSize returns the real-valued region width in bytes.
func (m Mapping) ChunkSize() float64 {
	return m.chunk
}

// RegionStart returns the first byte position of the region assigned to c.
func (m Mapping) RegionStart(c types.Coord) int64 {
	index := c.X*m.Geometry.Height + c.Y
	return int64(float64(index) * m.chunk)
}

// MaxOffset returns the largest random offset a sample may add to a
// region start. When the region is smaller than the sample window this
// clamps to 0 and sampling degrades to deterministic reads from the
// region start.
func (m Mapping) MaxOffset() int64 {
	off := m.chunk - float64(m.SampleBytes)
	if off < 0 {
		return 0
	}
	return int64(off)
}

// SamplePos returns the byte position to sample for c: the region start
// plus a uniform random offset in [0, MaxOffset()].
func (m Mapping) SamplePos(c types.Coord, rng *rand.Rand) int64 {
	start := m.RegionStart(c)
	maxOff := m.MaxOffset()
	if maxOff == 0 {
		return start
	}
	return start + rng.Int64N(maxOff+1)
}
