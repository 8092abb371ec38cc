package batch

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

func writeFileOfSize(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	data := make([]byte, size)
	rng := rand.New(rand.NewPCG(uint64(len(name)), 17))
	for i := range data {
		data[i] = byte(rng.IntN(256))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testOptions(dir string) Options {
	return Options{
		Dir:         dir,
		Geometry:    types.Geometry{Width: 10, Height: 10},
		SampleBytes: 8,
		Workers:     4,
		Tick:        5 * time.Millisecond,
		Budget:      40,
		Seed:        9,
	}
}

// Three qualifying files and one too-small file: exactly three discovery
// events, the small file never appears.
func TestScheduler_DiscoveryFiltersTooSmall(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	a := writeFileOfSize(t, dir, "a.bin", minSize)
	b := writeFileOfSize(t, dir, "b.bin", minSize*2)
	c := writeFileOfSize(t, dir, "c.bin", minSize+1)
	writeFileOfSize(t, dir, "small.bin", minSize-1)

	var mu sync.Mutex
	var discovered []string
	opts := testOptions(dir)
	opts.OnDiscover = func(path string, size int64) {
		mu.Lock()
		discovered = append(discovered, path)
		mu.Unlock()
	}

	s, err := NewScheduler(opts)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{a, b, c}, discovered)
	assert.ElementsMatch(t, []string{a, b, c}, s.Files())
}

func TestScheduler_MissingDirectory(t *testing.T) {
	opts := testOptions(filepath.Join(t.TempDir(), "nope"))
	s, err := NewScheduler(opts)
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOpen)
}

func TestScheduler_NonRecursiveSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	top := writeFileOfSize(t, dir, "top.bin", minSize)
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFileOfSize(t, sub, "nested.bin", minSize)

	s, err := NewScheduler(testOptions(dir))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, []string{top}, s.Files())
}

// Every file receives an identical share within any single tick.
func TestScheduler_NextBatchFairness(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		writeFileOfSize(t, dir, name, minSize)
	}

	opts := testOptions(dir)
	opts.Budget = 50
	s, err := NewScheduler(opts)
	require.NoError(t, err)

	require.NoError(t, Discover(context.Background(), dir, geom, 8, false, s.AddFile))
	require.Len(t, s.Files(), 3)

	for tick := 0; tick < 20; tick++ {
		batch := s.nextBatch()
		perFile := make(map[string]int)
		for _, sm := range batch {
			perFile[sm.path]++
		}
		require.Len(t, perFile, 3)
		for path, n := range perFile {
			require.Equal(t, 50/3, n, "tick %d file %s", tick, path)
		}
	}
}

// At least one sample per file per tick even when the budget is smaller
// than the file count.
func TestScheduler_BudgetFloorOnePerFile(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	for _, name := range []string{"a.bin", "b.bin", "c.bin", "d.bin", "e.bin"} {
		writeFileOfSize(t, dir, name, minSize)
	}

	opts := testOptions(dir)
	opts.Budget = 3
	s, err := NewScheduler(opts)
	require.NoError(t, err)
	require.NoError(t, Discover(context.Background(), dir, geom, 8, false, s.AddFile))

	batch := s.nextBatch()
	perFile := make(map[string]int)
	for _, sm := range batch {
		perFile[sm.path]++
	}
	require.Len(t, perFile, 5)
	for _, n := range perFile {
		assert.Equal(t, 1, n)
	}
}

// The shuffled cursor visits every cell of a file before repeating any,
// reshuffling on wrap.
func TestScheduler_FullCoverageBeforeRepeat(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 5, Height: 4}
	minSize := geom.MinFileSize(8)
	writeFileOfSize(t, dir, "a.bin", minSize)

	opts := testOptions(dir)
	opts.Geometry = geom
	opts.Budget = 7
	s, err := NewScheduler(opts)
	require.NoError(t, err)
	require.NoError(t, Discover(context.Background(), dir, geom, 8, false, s.AddFile))

	total := geom.TotalPoints()
	counts := make(map[types.Coord]int)
	drawn := 0
	for drawn < total*3 {
		for _, sm := range s.nextBatch() {
			counts[sm.coord]++
			drawn++
			// Within any window of totalPoints draws, counts differ by
			// at most one.
			var lo, hi = drawn, 0
			for _, n := range counts {
				if n < lo {
					lo = n
				}
				if n > hi {
					hi = n
				}
			}
			if len(counts) == total {
				require.LessOrEqual(t, hi-lo, 1)
			}
		}
	}
	assert.Len(t, counts, total)
}

// End-to-end: the tick loop samples all discovered files and emits
// events carrying file identity.
func TestScheduler_TickLoopEmitsEvents(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	a := writeFileOfSize(t, dir, "a.bin", minSize*2)
	b := writeFileOfSize(t, dir, "b.bin", minSize*3)

	s, err := NewScheduler(testOptions(dir))
	require.NoError(t, err)

	sub := s.Subscribe(4096)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		aggA, okA := s.Aggregator(a)
		aggB, okB := s.Aggregator(b)
		return okA && okB && aggA.Samples() > 20 && aggB.Samples() > 20
	}, 10*time.Second, 10*time.Millisecond)

	s.Stop()

	seenPaths := make(map[string]bool)
	for ev := range sub.Events {
		seenPaths[ev.Path] = true
		assert.True(t, ev.Coord.In(geom))
		assert.GreaterOrEqual(t, ev.Score, 1)
	}
	assert.True(t, seenPaths[a])
	assert.True(t, seenPaths[b])
}

// A file added mid-run joins the next tick's budget division.
func TestScheduler_AddFileMidRun(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	minSize := geom.MinFileSize(8)

	writeFileOfSize(t, dir, "a.bin", minSize)

	s, err := NewScheduler(testOptions(dir))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Len(t, s.Files(), 1)

	late := writeFileOfSize(t, dir, "late.bin", minSize)
	s.AddFile(late, minSize)

	require.Eventually(t, func() bool {
		agg, ok := s.Aggregator(late)
		return ok && agg.Samples() > 0
	}, 10*time.Second, 10*time.Millisecond)
}

// After Stop returns, aggregators are quiescent.
func TestScheduler_StopQuiesces(t *testing.T) {
	dir := t.TempDir()
	geom := types.Geometry{Width: 10, Height: 10}
	a := writeFileOfSize(t, dir, "a.bin", geom.MinFileSize(8)*2)

	s, err := NewScheduler(testOptions(dir))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		agg, ok := s.Aggregator(a)
		return ok && agg.Samples() > 0
	}, 10*time.Second, 10*time.Millisecond)

	s.Stop()
	agg, _ := s.Aggregator(a)
	after := agg.Samples()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, agg.Samples())
}
