package batch

import (
	"context"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/densemap/pkg/densemap/logging"
)

// Watcher feeds files created or grown after discovery into a running
// Scheduler. A file that was too small at discovery time joins the
// sampling rotation as soon as an external writer grows it past the
// minimum size.
type Watcher struct {
	scheduler *Scheduler
	fsw       *fsnotify.Watcher
	minSize   int64

	mu     sync.Mutex
	closed bool
	doneWG sync.WaitGroup
}

// NewWatcher creates a watcher for the scheduler's directory.
func NewWatcher(s *Scheduler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	geom := s.opts.Geometry
	w := &Watcher{
		scheduler: s,
		fsw:       fsw,
		minSize:   geom.MinFileSize(s.opts.SampleBytes),
	}

	if err := fsw.Add(s.opts.Dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start consumes filesystem events until the context is cancelled or
// Close is called. Watch errors are logged and skipped.
func (w *Watcher) Start(ctx context.Context) {
	log := logging.Get("watcher")

	w.doneWG.Add(1)
	go func() {
		defer w.doneWG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
					w.consider(ev.Name)
				}
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				log.Warn("watch error", "error", err)
			}
		}
	}()
}

// consider stats a changed path and registers it if it qualifies.
// AddFile deduplicates, so repeated writes to a known file are cheap.
func (w *Watcher) consider(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if info.Size() < w.minSize {
		return
	}
	w.scheduler.AddFile(path, info.Size())
}

// MinSize returns the qualification threshold in bytes.
func (w *Watcher) MinSize() int64 {
	return w.minSize
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	w.doneWG.Wait()
	return err
}
