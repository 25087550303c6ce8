//go:build windows

package storage

import (
	"os"

	"golang.org/x/sys/windows"
)

type windowsLockHandle struct {
	f *os.File
}

func (h *windowsLockHandle) Close() error {
	ol := new(windows.Overlapped)
	_ = windows.UnlockFileEx(windows.Handle(h.f.Fd()), 0, 1, 0, ol)
	return h.f.Close()
}

// tryLock attempts a non-blocking exclusive LockFileEx on path,
// creating the file if necessary. Mirrors lock_unix.go's flock-based
// implementation using the Windows equivalent from the same
// golang.org/x/sys dependency.
func tryLock(path string) (lockHandle, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, err
	}
	ol := new(windows.Overlapped)
	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
	if err != nil {
		_ = f.Close()
		if err == windows.ERROR_LOCK_VIOLATION {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &windowsLockHandle{f: f}, true, nil
}
