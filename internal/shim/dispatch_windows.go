//go:build windows

package shim

import (
	"os"
	"os/exec"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

// Dispatch spawns plan.TargetPath as a child process and waits for it,
// per spec §4.2 step 6: Windows has no exec() process-replacement
// primitive, so the shim spawns, forwards stdio, and propagates the
// child's exit code via os.Exit instead of returning.
func Dispatch(plan Plan, argv0 string) error {
	cmd := exec.Command(plan.TargetPath, plan.Args...)
	cmd.Env = plan.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return kopierr.Wrap(kopierr.IoError, err, "spawning "+plan.TargetPath)
	}
	os.Exit(0)
	return nil
}
