// Package types provides core data types for the densemap byte-density
// visualizer. It includes the logical grid geometry, sample coordinates,
// per-cell statistics, and the sample event stream payload shared by the
// engine, schedulers, and presentation layers.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Schedulers report
// these once per session or per candidate file; they are never retried.
var (
	// ErrOpen indicates a file could not be opened for shared reading.
	ErrOpen = errors.New("cannot open file")

	// ErrTooSmall indicates a file is smaller than the minimum size
	// needed to map one sample window onto every grid cell.
	ErrTooSmall = errors.New("file too small to map")

	// ErrInvalidGeometry indicates a grid geometry with non-positive
	// dimensions.
	ErrInvalidGeometry = errors.New("invalid grid geometry")
)

// Geometry describes the fixed logical grid a file's byte range is
// proportionally mapped onto. It is immutable once a session starts.
type Geometry struct {
	// Width is the number of cells along the X axis.
	Width int `json:"width"`

	// Height is the number of cells along the Y axis.
	Height int `json:"height"`
}

// TotalPoints returns the number of cells in the grid.
func (g Geometry) TotalPoints() int {
	return g.Width * g.Height
}

// Validate checks that both axes are positive.
func (g Geometry) Validate() error {
	if g.Width < 1 || g.Height < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, g.Width, g.Height)
	}
	return nil
}

// MinFileSize returns the smallest file size that satisfies the mapping
// precondition: one full sample window per grid cell.
func (g Geometry) MinFileSize(sampleBytes int) int64 {
	return int64(g.TotalPoints()) * int64(sampleBytes)
}

// String returns "WxH".
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Coord identifies one cell of the logical grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// In reports whether the coordinate lies inside the geometry.
func (c Coord) In(g Geometry) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// CellStats is the committed state of one grid cell: the running sum of
// scores and the number of samples merged so far. A CellStats value is
// only observable with Count >= 1.
type CellStats struct {
	// Total is the sum of all merged scores.
	Total int64 `json:"total"`

	// Count is the number of merged samples.
	Count int64 `json:"count"`
}

// Average returns Total/Count. Count is at least 1 for any stats value
// handed out by an aggregator.
func (s CellStats) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Total) / float64(s.Count)
}

// SampleEvent is one committed sample: a coordinate, its diversity score,
// and the identity of the sampled file. Produced by exactly one worker
// after the aggregator merge, consumed by presentation subscribers.
type SampleEvent struct {
	// Path identifies the sampled file. Always set; single-file
	// consumers may ignore it.
	Path string `json:"path"`

	// Coord is the grid cell the sample belongs to.
	Coord Coord `json:"coord"`

	// Score is the distinct-byte count of the sampled window.
	Score int `json:"score"`
}
