// Package sampler provides shared-mode file access and the diversity score
// for the densemap engine. Files are opened so that concurrent readers and
// writers of the same path are never excluded: a file being appended to by
// another process can be visualized while it grows.
package sampler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// SharedReader is a read-only handle for concurrent random reads. Each
// worker owns its own SharedReader; handles are never shared between
// goroutines.
type SharedReader struct {
	f    *os.File
	path string
}

// OpenShared opens path for reading without taking any exclusive lock.
// On Windows the file is opened with all share flags set so other
// processes can keep reading, writing, or deleting it.
func OpenShared(path string) (*SharedReader, error) {
	f, err := openShared(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrOpen, path, err)
	}
	return &SharedReader{f: f, path: path}, nil
}

// Path returns the path the reader was opened with.
func (r *SharedReader) Path() string {
	return r.path
}

// Size returns the current file size. For files under active external
// writes this is a snapshot, not a guarantee.
func (r *SharedReader) Size() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadWindow reads up to len(buf) bytes at pos. Short reads at end of
// file are not errors: the byte count is returned and the caller treats
// n == 0 as "no sample". Any other failure is returned as-is.
func (r *SharedReader) ReadWindow(pos int64, buf []byte) (int, error) {
	n, err := r.f.ReadAt(buf, pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, nil
}

// Close releases the handle.
func (r *SharedReader) Close() error {
	return r.f.Close()
}

// Score returns the diversity score of a sampled window: the count of
// distinct byte values present, in [1, len(window)]. It is a cheap
// order-independent heuristic, not an entropy measure. Callers must not
// pass an empty window; a zero-byte read means "no sample".
func Score(window []byte) int {
	var seen [256]bool
	distinct := 0
	for _, b := range window {
		if !seen[b] {
			seen[b] = true
			distinct++
		}
	}
	return distinct
}
