// Package grid provides the thread-safe running-average store for sampled
// grid cells. One Aggregator owns all cell state for a visualization
// context; workers merge committed scores into it and readers observe
// whole pre- or post-merge cell states, never torn combinations.
package grid

import (
	"sync"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Aggregator accumulates per-cell score sums and sample counts. Cells are
// created lazily on first merge and removed only by Reset. Safe for
// concurrent use by any number of merging workers and snapshot readers.
type Aggregator struct {
	mu      sync.RWMutex
	cells   map[types.Coord]types.CellStats
	samples int64
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		cells: make(map[types.Coord]types.CellStats),
	}
}

// Merge folds one score into the cell at c, creating it on first touch.
// Merges are associative and commutative: the final average does not
// depend on merge order.
func (a *Aggregator) Merge(c types.Coord, score int) {
	a.mu.Lock()
	stats := a.cells[c]
	stats.Total += int64(score)
	stats.Count++
	a.cells[c] = stats
	a.samples++
	a.mu.Unlock()
}

// Cell returns the committed stats for c and whether the cell exists.
// Any returned stats have Count >= 1.
func (a *Aggregator) Cell(c types.Coord) (types.CellStats, bool) {
	a.mu.RLock()
	stats, ok := a.cells[c]
	a.mu.RUnlock()
	return stats, ok
}

// Snapshot returns a copy of all cell states at one consistent point.
func (a *Aggregator) Snapshot() map[types.Coord]types.CellStats {
	a.mu.RLock()
	out := make(map[types.Coord]types.CellStats, len(a.cells))
	for c, stats := range a.cells {
		out[c] = stats
	}
	a.mu.RUnlock()
	return out
}

// Samples returns the total number of merges across all cells.
func (a *Aggregator) Samples() int64 {
	a.mu.RLock()
	n := a.samples
	a.mu.RUnlock()
	return n
}

// Len returns the number of cells touched so far.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	n := len(a.cells)
	a.mu.RUnlock()
	return n
}

// Reset drops all cell state. Callers must join any workers still merging
// into this aggregator before resetting.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.cells = make(map[types.Coord]types.CellStats)
	a.samples = 0
	a.mu.Unlock()
}
