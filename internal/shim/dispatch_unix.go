//go:build !windows

package shim

import (
	"golang.org/x/sys/unix"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

// Dispatch replaces the current process image with plan.TargetPath,
// per spec §4.2 step 6: on POSIX, real exec semantics are available, so
// the shim never returns on success — argv[0] becomes the tool name so
// the target binary sees the same invocation name a direct call would.
func Dispatch(plan Plan, argv0 string) error {
	argv := append([]string{argv0}, plan.Args...)
	err := unix.Exec(plan.TargetPath, argv, plan.Env)
	return kopierr.Wrap(kopierr.IoError, err, "exec "+plan.TargetPath)
}
