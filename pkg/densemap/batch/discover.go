package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/densemap/pkg/densemap/logging"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Discover enumerates dir and calls onFound for every regular file that
// meets the minimum-size precondition for the geometry. Entries that
// cannot be read are skipped, never failing the whole scan. Too-small
// files are simply excluded. Non-recursive by default; set recursive to
// walk the full tree.
func Discover(ctx context.Context, dir string, geom types.Geometry, sampleBytes int, recursive bool, onFound func(path string, size int64)) error {
	log := logging.Get("batch")

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return os.ErrInvalid
	}

	minSize := geom.MinFileSize(sampleBytes)

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Debug("discovery entry skipped", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			log.Debug("discovery stat failed", "path", path, "error", err)
			return nil
		}
		if fi.Size() < minSize {
			return nil
		}

		onFound(path, fi.Size())
		return nil
	})
}
