//go:build windows

package sampler

import (
	"os"

	"golang.org/x/sys/windows"
)

// openShared opens a file with FILE_SHARE_READ|WRITE|DELETE so the handle
// never blocks other processes touching the same path. The default
// os.Open on Windows omits FILE_SHARE_DELETE.
func openShared(path string) (*os.File, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, err
	}

	return os.NewFile(uintptr(h), path), nil
}
