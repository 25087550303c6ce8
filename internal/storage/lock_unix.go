//go:build !windows

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

type unixLockHandle struct {
	f *os.File
}

func (h *unixLockHandle) Close() error {
	_ = unix.Flock(int(h.f.Fd()), unix.LOCK_UN)
	return h.f.Close()
}

// tryLock attempts a non-blocking exclusive flock on path, creating the
// file if necessary. Grounded on Jenvy's own direct dependency on
// golang.org/x/sys (previously used only for Windows path utilities),
// repurposed here to the cross-process advisory-locking concern spec §5
// requires.
func tryLock(path string) (lockHandle, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &unixLockHandle{f: f}, true, nil
}
