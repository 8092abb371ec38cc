// Package engine orchestrates concurrent sampling of a single file onto a
// logical grid: an exhaustive shuffled first pass split statically across
// a bounded worker pool, followed (for persistent sessions) by an
// unbounded random refinement pass that improves each cell's running
// average until stopped.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/jamesainslie/densemap/pkg/densemap/broadcast"
	"github.com/jamesainslie/densemap/pkg/densemap/grid"
	"github.com/jamesainslie/densemap/pkg/densemap/logging"
	"github.com/jamesainslie/densemap/pkg/densemap/region"
	"github.com/jamesainslie/densemap/pkg/densemap/sampler"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// State is the lifecycle phase of a session.
type State int32

// Session lifecycle: Idle -> Discovering -> FirstPass -> [Refining |
// Stopped] -> Closed. Precondition failures leave the session Closed
// without starting any workers.
const (
	StateIdle State = iota
	StateDiscovering
	StateFirstPass
	StateRefining
	StateStopped
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateFirstPass:
		return "first-pass"
	case StateRefining:
		return "refining"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session runs one file-processing session: precondition checks, the
// first pass, and optionally the refinement pass. A Session is not
// reusable; create a new one per file.
type Session struct {
	opts Options
	agg  *grid.Aggregator
	bc   *broadcast.Broadcaster
	log  *log.Logger

	state   atomic.Int32
	sampled atomic.Int64
	total   int

	cancel        context.CancelFunc
	workersWG     sync.WaitGroup
	firstPassWG   sync.WaitGroup
	firstPassDone chan struct{}
}

// NewSession validates opts and builds an idle session with its own
// aggregator and event broadcaster.
func NewSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		opts:          opts,
		agg:           grid.NewAggregator(),
		bc:            broadcast.New(),
		log:           logging.Get("engine"),
		total:         opts.Geometry.TotalPoints(),
		firstPassDone: make(chan struct{}),
	}, nil
}

// Aggregator returns the session's cell store. Readers observe only
// committed merges.
func (s *Session) Aggregator() *grid.Aggregator {
	return s.agg
}

// Options returns a copy of the validated session options.
func (s *Session) Options() Options {
	return s.opts
}

// Subscribe registers a consumer of the committed sample event stream.
func (s *Session) Subscribe(buffer int) *broadcast.Subscriber {
	return s.bc.Subscribe(buffer)
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Progress returns first-pass samples merged so far and the grid total.
func (s *Session) Progress() (sampled, total int) {
	n := int(s.sampled.Load())
	if n > s.total {
		n = s.total
	}
	return n, s.total
}

// FirstPassDone returns a channel closed exactly once, when every worker
// has completed its initial coordinate slice. It never closes if the
// session is stopped or fails first.
func (s *Session) FirstPassDone() <-chan struct{} {
	return s.firstPassDone
}

// Start checks preconditions and launches the worker pool. Precondition
// violations (missing file, too-small file) are terminal: the error is
// returned once and no workers start. Start does not block; use Wait or
// FirstPassDone to observe completion.
func (s *Session) Start(ctx context.Context) error {
	s.state.Store(int32(StateDiscovering))

	info, err := os.Stat(s.opts.Path)
	if err != nil {
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("%w: %s: %v", types.ErrOpen, s.opts.Path, err)
	}

	minSize := s.opts.Geometry.MinFileSize(s.opts.SampleBytes)
	if info.Size() < minSize {
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("%w: %s is %d bytes, need %d for a %s grid",
			types.ErrTooSmall, s.opts.Path, info.Size(), minSize, s.opts.Geometry)
	}

	mapping := region.NewMapping(info.Size(), s.opts.Geometry, s.opts.SampleBytes)

	seed := s.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	slices := partition(shuffledCoords(s.opts.Geometry, rng), s.opts.Workers)

	workers := make([]*worker, 0, len(slices))
	for i, coords := range slices {
		reader, err := sampler.OpenShared(s.opts.Path)
		if err != nil {
			for _, w := range workers {
				_ = w.reader.Close()
			}
			s.state.Store(int32(StateClosed))
			return err
		}
		workers = append(workers, &worker{
			id:      i,
			session: s,
			reader:  reader,
			mapping: mapping,
			coords:  coords,
			rng:     rand.New(rand.NewPCG(seed, uint64(i)+1)),
			buf:     make([]byte, s.opts.SampleBytes),
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.state.Store(int32(StateFirstPass))
	s.log.Info("first pass started",
		"path", s.opts.Path,
		"size", info.Size(),
		"grid", s.opts.Geometry.String(),
		"workers", len(workers),
		"persistent", s.opts.Persistent)

	s.firstPassWG.Add(len(workers))
	s.workersWG.Add(len(workers))
	for _, w := range workers {
		go w.run(runCtx)
	}

	// Barrier: fire the first-pass-complete signal once every worker has
	// finished its slice, unless the session was cancelled first.
	go func() {
		s.firstPassWG.Wait()
		if runCtx.Err() != nil {
			return
		}
		if s.opts.Persistent {
			s.state.Store(int32(StateRefining))
		}
		s.log.Info("first pass complete", "path", s.opts.Path, "samples", s.sampled.Load())
		close(s.firstPassDone)
	}()

	// Non-persistent sessions stop naturally when the pool drains.
	go func() {
		s.workersWG.Wait()
		s.state.CompareAndSwap(int32(StateFirstPass), int32(StateStopped))
		s.state.CompareAndSwap(int32(StateRefining), int32(StateStopped))
	}()

	return nil
}

// Wait blocks until every worker has terminated. For persistent sessions
// that means until Stop is called.
func (s *Session) Wait() {
	s.workersWG.Wait()
	s.state.CompareAndSwap(int32(StateFirstPass), int32(StateStopped))
	s.state.CompareAndSwap(int32(StateRefining), int32(StateStopped))
}

// Stop requests cooperative cancellation and joins every worker before
// returning. After Stop returns no further events are emitted and shared
// state (the aggregator) is safe to reset or discard.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.workersWG.Wait()
	s.state.Store(int32(StateClosed))
	s.bc.Close()
}

// commit merges one committed sample and publishes it to subscribers.
// firstPass merges advance the progress counter.
func (s *Session) commit(ev types.SampleEvent, firstPass bool) {
	s.agg.Merge(ev.Coord, ev.Score)
	if firstPass {
		n := s.sampled.Add(1)
		if s.opts.OnProgress != nil {
			done := int(n)
			if done > s.total {
				done = s.total
			}
			s.opts.OnProgress(done, s.total)
		}
	}
	s.bc.Notify(ev)
}
