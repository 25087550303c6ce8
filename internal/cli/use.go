package cli

import (
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/shim"
)

// newUseCmd implements `kopi use <request>`: prints a shell snippet that
// exports JAVA_HOME/PATH for the requested JDK, meant to be evaluated
// with `eval "$(kopi use 17)"` in the caller's shell — Kopi's own
// process can never modify its parent shell's environment directly.
func newUseCmd() *cobra.Command {
	var shellName string

	cmd := &cobra.Command{
		Use:   "use <request>",
		Short: "Print a shell snippet that activates the requested JDK",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := model.ParseVersionRequest(args[0])
			if err != nil {
				return kopierr.Wrap(kopierr.InvalidInput, err, "parsing version request")
			}
			jdk, err := resolve.BestInstalled(a.Layout, req)
			if err != nil {
				return err
			}
			sh, err := resolveShellFlag(shellName)
			if err != nil {
				return kopierr.Wrap(kopierr.InvalidInput, err, "parsing --shell")
			}
			javaHome, _, err := shim.JavaHomeFor(jdk)
			if err != nil {
				return err
			}
			for _, line := range exportStatements(sh, javaHome) {
				a.Out.Plain("%s", line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shellName, "shell", "", "shell dialect to emit (bash, zsh, fish, powershell); autodetected by default")
	return cmd
}

func resolveShellFlag(name string) (shellKind, error) {
	if name == "" {
		return detectShell(), nil
	}
	return parseShellKind(name)
}
