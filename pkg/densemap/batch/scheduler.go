// Package batch schedules fair time-sliced sampling across many files in
// a directory. Each tick draws a fixed total sample budget, divides it
// evenly over all active files, and dispatches the flattened batch to a
// bounded pool of one-shot workers. Per-file shuffled cursors guarantee
// every cell of a file's grid is visited before any cell repeats.
package batch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jamesainslie/densemap/pkg/densemap/broadcast"
	"github.com/jamesainslie/densemap/pkg/densemap/grid"
	"github.com/jamesainslie/densemap/pkg/densemap/logging"
	"github.com/jamesainslie/densemap/pkg/densemap/region"
	"github.com/jamesainslie/densemap/pkg/densemap/sampler"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// sample is one scheduled (file, coordinate) tuple for the current tick.
type sample struct {
	path  string
	coord types.Coord
}

// fileState tracks the shuffled coordinate cursor and aggregator for one
// discovered file. Owned by the Scheduler.
type fileState struct {
	path   string
	coords []types.Coord
	cursor int
	agg    *grid.Aggregator
}

// Scheduler is the multi-file batch sampler.
type Scheduler struct {
	opts Options
	bc   *broadcast.Broadcaster
	log  *log.Logger

	mu    sync.RWMutex
	files map[string]*fileState
	order []string
	rng   *rand.Rand

	cancel context.CancelFunc
	loopWG sync.WaitGroup
	tickWG sync.WaitGroup
	ticks  atomic.Int64
}

// NewScheduler validates opts and builds an idle scheduler.
func NewScheduler(opts Options) (*Scheduler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Scheduler{
		opts:  opts,
		bc:    broadcast.New(),
		log:   logging.Get("batch"),
		files: make(map[string]*fileState),
		rng:   rand.New(rand.NewPCG(seed, 0)),
	}, nil
}

// Options returns the validated scheduler configuration.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Subscribe registers a consumer of the committed sample event stream.
func (s *Scheduler) Subscribe(buffer int) *broadcast.Subscriber {
	return s.bc.Subscribe(buffer)
}

// Files returns the active file paths in discovery order.
func (s *Scheduler) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Aggregator returns the cell store for one discovered file.
func (s *Scheduler) Aggregator(path string) (*grid.Aggregator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return st.agg, true
}

// Ticks returns the number of completed batch ticks.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// AddFile registers a file for sampling. Safe to call mid-run: the file
// joins the next tick's budget division. Duplicate adds are ignored.
func (s *Scheduler) AddFile(path string, size int64) {
	s.mu.Lock()
	if _, ok := s.files[path]; ok {
		s.mu.Unlock()
		return
	}

	coords := make([]types.Coord, 0, s.opts.Geometry.TotalPoints())
	for y := 0; y < s.opts.Geometry.Height; y++ {
		for x := 0; x < s.opts.Geometry.Width; x++ {
			coords = append(coords, types.Coord{X: x, Y: y})
		}
	}
	s.rng.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})

	s.files[path] = &fileState{path: path, coords: coords, agg: grid.NewAggregator()}
	s.order = append(s.order, path)
	s.mu.Unlock()

	s.log.Info("file discovered", "path", path, "size", size)
	if s.opts.OnDiscover != nil {
		s.opts.OnDiscover(path, size)
	}
}

// Start discovers qualifying files in the configured directory, then runs
// the tick loop until the context is cancelled or Stop is called. The
// discovery error is terminal; per-entry errors are skipped inside
// Discover.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := os.Stat(s.opts.Dir); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrOpen, s.opts.Dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	err := Discover(runCtx, s.opts.Dir, s.opts.Geometry, s.opts.SampleBytes, s.opts.Recursive, s.AddFile)
	if err != nil && runCtx.Err() == nil {
		cancel()
		return err
	}

	s.log.Info("batch sampling started",
		"dir", s.opts.Dir,
		"files", len(s.Files()),
		"budget", s.opts.Budget,
		"tick", s.opts.Tick)

	s.loopWG.Add(1)
	go s.run(runCtx)
	return nil
}

// run is the fixed-interval tick loop.
func (s *Scheduler) run(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Reclaim the previous tick's one-shot workers before
			// dispatching more; live workers stay bounded by the pool
			// size per tick.
			s.tickWG.Wait()
			s.dispatch(ctx)
			s.ticks.Add(1)
		}
	}
}

// dispatch draws one budget of samples and fans it out to one-shot
// workers.
func (s *Scheduler) dispatch(ctx context.Context) {
	batch := s.nextBatch()
	if len(batch) == 0 {
		return
	}

	per := (len(batch) + s.opts.Workers - 1) / s.opts.Workers
	for start := 0; start < len(batch); start += per {
		end := start + per
		if end > len(batch) {
			end = len(batch)
		}
		s.tickWG.Add(1)
		go s.runBatch(ctx, batch[start:end])
	}
}

// nextBatch advances every file's shuffled cursor by the per-file budget
// and returns the flattened samples for this tick. Cursors wrap with a
// fresh shuffle on exhaustion, so every cell is visited before any
// repeats. All files receive the same share in the same tick.
func (s *Scheduler) nextBatch() []sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	perFile := s.opts.Budget / len(s.order)
	if perFile < 1 {
		perFile = 1
	}

	batch := make([]sample, 0, perFile*len(s.order))
	for _, path := range s.order {
		st := s.files[path]
		for i := 0; i < perFile; i++ {
			if st.cursor >= len(st.coords) {
				s.rng.Shuffle(len(st.coords), func(a, b int) {
					st.coords[a], st.coords[b] = st.coords[b], st.coords[a]
				})
				st.cursor = 0
			}
			batch = append(batch, sample{path: path, coord: st.coords[st.cursor]})
			st.cursor++
		}
	}
	return batch
}

// runBatch executes one worker's share of a tick: samples grouped by
// file, one shared handle per file, chunk geometry recomputed from the
// file's current size so externally growing files stay mapped correctly.
func (s *Scheduler) runBatch(ctx context.Context, samples []sample) {
	defer s.tickWG.Done()

	rng := rand.New(rand.NewPCG(rand.Uint64(), 0))
	buf := make([]byte, s.opts.SampleBytes)

	byPath := make(map[string][]types.Coord)
	var paths []string
	for _, sm := range samples {
		if _, ok := byPath[sm.path]; !ok {
			paths = append(paths, sm.path)
		}
		byPath[sm.path] = append(byPath[sm.path], sm.coord)
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		reader, err := sampler.OpenShared(path)
		if err != nil {
			s.log.Debug("batch open failed", "path", path, "error", err)
			continue
		}

		size, err := reader.Size()
		if err != nil || size <= 0 {
			s.log.Debug("batch stat failed", "path", path, "error", err)
			_ = reader.Close()
			continue
		}
		mapping := region.NewMapping(size, s.opts.Geometry, s.opts.SampleBytes)

		for _, c := range byPath[path] {
			if ctx.Err() != nil {
				break
			}
			pos := mapping.SamplePos(c, rng)
			n, err := reader.ReadWindow(pos, buf)
			if err != nil || n == 0 {
				continue
			}
			s.commit(path, c, sampler.Score(buf[:n]))
		}
		_ = reader.Close()
	}
}

// commit merges one committed sample into its file's aggregator and
// publishes it.
func (s *Scheduler) commit(path string, c types.Coord, score int) {
	s.mu.RLock()
	st, ok := s.files[path]
	s.mu.RUnlock()
	if !ok {
		return
	}

	st.agg.Merge(c, score)
	s.bc.Notify(types.SampleEvent{Path: path, Coord: c, Score: score})
}

// Stop cancels the tick loop and joins every outstanding worker before
// returning. No events are emitted after Stop returns.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.loopWG.Wait()
	s.tickWG.Wait()
	s.bc.Close()
}
