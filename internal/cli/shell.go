package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/shim"
)

// newShellCmd implements `kopi shell [request]`: spawns a subshell with
// JAVA_HOME/PATH already set, for one-off interactive use without
// touching any project or global config file. With no argument it uses
// the same resolution `kopi current`/`kopi env` would (spec §6); an
// explicit request overrides resolution for this subshell only.
func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [request]",
		Short: "Spawn a subshell with a JDK on PATH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			var req model.VersionRequest
			if len(args) == 1 {
				var err error
				req, err = model.ParseVersionRequest(args[0])
				if err != nil {
					return kopierr.Wrap(kopierr.InvalidInput, err, "parsing version request")
				}
			} else {
				resolved, err := resolve.Resolve(a.Layout, ".", nil)
				if err != nil {
					return err
				}
				req = resolved.Request
			}

			jdk, err := resolve.BestInstalled(a.Layout, req)
			if err != nil {
				return err
			}
			javaHome, _, err := shim.JavaHomeFor(jdk)
			if err != nil {
				return err
			}

			shellPath, shellArgs := subshellCommand()
			child := exec.Command(shellPath, shellArgs...)
			child.Env = append(os.Environ(), "JAVA_HOME="+javaHome,
				"PATH="+filepath.Join(javaHome, "bin")+string(os.PathListSeparator)+os.Getenv("PATH"))
			child.Stdin, child.Stdout, child.Stderr = os.Stdin, os.Stdout, os.Stderr

			a.Out.Info("spawning subshell with %s@%s on PATH (exit to return)", jdk.Distribution, jdk.JavaVersion.String())
			if err := child.Run(); err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					os.Exit(exitErr.ExitCode())
				}
				return kopierr.Wrap(kopierr.IoError, err, "spawning subshell")
			}
			return nil
		},
	}
}

func subshellCommand() (path string, args []string) {
	if runtime.GOOS == "windows" {
		return "powershell.exe", nil
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, nil
}
