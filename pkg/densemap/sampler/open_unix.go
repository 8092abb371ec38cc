//go:build !windows

package sampler

import "os"

// openShared opens a file read-only. POSIX opens never exclude other
// readers or writers, so a plain open is already shared-mode.
func openShared(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}
