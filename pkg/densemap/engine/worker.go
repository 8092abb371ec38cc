package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jamesainslie/densemap/pkg/densemap/region"
	"github.com/jamesainslie/densemap/pkg/densemap/sampler"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// worker owns one contiguous slice of the shuffled first-pass coordinates
// and its own file handle. Workers never share handles or block on each
// other; the aggregator merge is the only synchronization point.
type worker struct {
	id      int
	session *Session
	reader  *sampler.SharedReader
	mapping region.Mapping
	coords  []types.Coord
	rng     *rand.Rand
	buf     []byte
}

// run samples the worker's first-pass slice exactly once, then, for
// persistent sessions, waits on the all-workers barrier and refines with
// random coordinates until cancelled. Cancellation is checked once per
// iteration, never mid-read.
func (w *worker) run(ctx context.Context) {
	defer w.session.workersWG.Done()
	defer w.reader.Close()

	firstDone := false
	markFirstPass := func() {
		if !firstDone {
			firstDone = true
			w.session.firstPassWG.Done()
		}
	}
	defer markFirstPass()

	for _, c := range w.coords {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.samplePoint(c, true)
	}
	markFirstPass()

	if !w.session.opts.Persistent {
		return
	}

	// Refinement starts only after every worker finished its slice.
	select {
	case <-w.session.firstPassDone:
	case <-ctx.Done():
		return
	}
	w.refine(ctx)
}

// refine samples uniformly random coordinates with replacement, one per
// interval, until cancelled.
func (w *worker) refine(ctx context.Context) {
	geom := w.session.opts.Geometry
	ticker := time.NewTicker(w.session.opts.RefineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c := types.Coord{X: w.rng.IntN(geom.Width), Y: w.rng.IntN(geom.Height)}
			w.samplePoint(c, false)
		}
	}
}

// samplePoint reads one window for c, scores it, and commits the result.
// Read failures and zero-byte reads are skipped: a single bad region
// never aborts the session.
func (w *worker) samplePoint(c types.Coord, firstPass bool) {
	pos := w.mapping.SamplePos(c, w.rng)
	n, err := w.reader.ReadWindow(pos, w.buf)
	if err != nil {
		w.session.log.Debug("sample read failed",
			"worker", w.id, "pos", pos, "error", err)
		return
	}
	if n == 0 {
		return
	}

	score := sampler.Score(w.buf[:n])
	w.session.commit(types.SampleEvent{
		Path:  w.reader.Path(),
		Coord: c,
		Score: score,
	}, firstPass)
}
