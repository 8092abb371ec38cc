package grid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

func TestAggregator_MergeCreatesCell(t *testing.T) {
	a := NewAggregator()
	c := types.Coord{X: 3, Y: 7}

	_, ok := a.Cell(c)
	require.False(t, ok)

	a.Merge(c, 5)

	stats, ok := a.Cell(c)
	require.True(t, ok)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(1), stats.Count)
	assert.Equal(t, 5.0, stats.Average())
}

func TestAggregator_RunningAverage(t *testing.T) {
	a := NewAggregator()
	c := types.Coord{X: 0, Y: 0}

	for _, score := range []int{2, 4, 6} {
		a.Merge(c, score)
	}

	stats, ok := a.Cell(c)
	require.True(t, ok)
	assert.Equal(t, int64(12), stats.Total)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, 4.0, stats.Average())
}

// Merge order must not affect the final state: k concurrent merges of
// scores s_1..s_k into one cell end with count=k and average=sum/k.
func TestAggregator_ConcurrentMergesSameCell(t *testing.T) {
	a := NewAggregator()
	c := types.Coord{X: 1, Y: 1}

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Merge(c, score)
			}
		}(w + 1)
	}
	wg.Wait()

	stats, ok := a.Cell(c)
	require.True(t, ok)
	assert.Equal(t, int64(workers*perWorker), stats.Count)

	// sum over workers of perWorker * (w+1)
	var wantTotal int64
	for w := 1; w <= workers; w++ {
		wantTotal += int64(perWorker * w)
	}
	assert.Equal(t, wantTotal, stats.Total)
	assert.Equal(t, int64(workers*perWorker), a.Samples())
}

func TestAggregator_ConcurrentMergesDistinctCells(t *testing.T) {
	a := NewAggregator()

	const workers = 4
	const cellsPer = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < cellsPer; i++ {
				a.Merge(types.Coord{X: base, Y: i}, 3)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*cellsPer, a.Len())
	assert.Equal(t, int64(workers*cellsPer), a.Samples())
}

// Readers racing with writers must always observe a consistent
// (total, count) pair: the running average of a cell merged with a
// constant score is exactly that score at every observation.
func TestAggregator_NoTornReads(t *testing.T) {
	a := NewAggregator()
	c := types.Coord{X: 2, Y: 2}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			a.Merge(c, 7)
		}
	}()

	for {
		select {
		case <-done:
			stats, _ := a.Cell(c)
			assert.Equal(t, 7.0, stats.Average())
			return
		default:
			if stats, ok := a.Cell(c); ok {
				require.Equal(t, stats.Total, stats.Count*7)
			}
		}
	}
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator()
	a.Merge(types.Coord{X: 0, Y: 0}, 1)
	a.Merge(types.Coord{X: 1, Y: 0}, 2)
	require.Equal(t, 2, a.Len())

	a.Reset()

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, int64(0), a.Samples())
	_, ok := a.Cell(types.Coord{X: 0, Y: 0})
	assert.False(t, ok)
}

func TestAggregator_SnapshotIsCopy(t *testing.T) {
	a := NewAggregator()
	c := types.Coord{X: 5, Y: 5}
	a.Merge(c, 4)

	snap := a.Snapshot()
	a.Merge(c, 4)

	assert.Equal(t, int64(1), snap[c].Count)
	stats, _ := a.Cell(c)
	assert.Equal(t, int64(2), stats.Count)
}
