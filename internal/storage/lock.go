package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

// LockKey builds the advisory lock key for an install operation, per
// spec §3: "install:<distribution>@<version>@<arch>@<libc>".
func LockKey(distribution, ver, arch, libc string) string {
	return fmt.Sprintf("install:%s@%s@%s@%s", distribution, ver, arch, libc)
}

const (
	CacheWriteLockKey = "cache-write"
	ShimsLockKey      = "shims"
)

// Lock is a file-backed advisory lock scoped to one operation.
type Lock struct {
	path string
	f    lockHandle
}

// lockHandle is the OS-specific file-lock primitive, implemented in
// lock_unix.go / lock_windows.go.
type lockHandle interface {
	Close() error
}

// LockPath returns the lock file path for a given key, sanitizing ':'
// and '@' so the key is a valid path segment on every platform.
func (l Layout) LockPath(key string) string {
	safe := sanitizeLockKey(key)
	return filepath.Join(l.LocksRoot(), safe+".lock")
}

func sanitizeLockKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch r {
		case ':', '@', '/', '\\':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Acquire acquires the advisory lock for key, blocking (with polling)
// until it succeeds or timeout elapses. A zero timeout fails
// immediately if the lock is already held, per spec §8's boundary
// behavior. The lock is released on any exit path, including process
// crash, because the OS reclaims the file handle's lock automatically.
func (l Layout) Acquire(ctx context.Context, key string, timeout time.Duration) (*Lock, error) {
	// An OS file lock needs a real file; on any other afero.Fs (such as
	// the in-memory one tests use) the returned Lock holds nothing.
	if _, ok := l.FS.(*afero.OsFs); !ok {
		return &Lock{path: l.LockPath(key)}, nil
	}
	if err := l.FS.MkdirAll(l.LocksRoot(), 0o755); err != nil {
		return nil, kopierr.Wrap(kopierr.IoError, err, "creating locks directory")
	}
	path := l.LockPath(key)

	deadline := time.Now().Add(timeout)
	const pollInterval = 50 * time.Millisecond
	for {
		handle, acquired, err := tryLock(path)
		if err != nil {
			return nil, kopierr.Wrap(kopierr.IoError, err, "acquiring lock "+key)
		}
		if acquired {
			_ = writeHolderPID(path)
			return &Lock{path: path, f: handle}, nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			holder := readHolderPID(path)
			e := kopierr.Newf(kopierr.LockTimeout, "timed out waiting for lock %q", key).
				WithHint("another kopi process is holding this lock; wait for it to finish or remove " + path + " if it is stale")
			if holder != "" {
				e = e.WithField("holder_pid", holder)
			}
			return nil, e
		}
		select {
		case <-ctx.Done():
			return nil, kopierr.Wrap(kopierr.Cancelled, ctx.Err(), "lock acquisition cancelled")
		case <-time.After(pollInterval):
		}
	}
}

// Release releases the lock and removes the lock's in-process handle.
// The backing file is intentionally left on disk (future acquires reuse
// it); only the advisory lock itself is released.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}

func writeHolderPID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readHolderPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
