package cli

import (
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/shim"
)

// newEnvCmd implements `kopi env`: emits the shell-specific export
// statements for the currently-resolved JDK (spec §6), for direct
// shell-startup sourcing (`eval "$(kopi env)"` in .bashrc/.zshrc).
func newEnvCmd() *cobra.Command {
	var shellName string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print shell export statements for the currently resolved JDK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			resolved, err := resolve.Resolve(a.Layout, ".", nil)
			if err != nil {
				return err
			}
			jdk, err := resolve.BestInstalled(a.Layout, resolved.Request)
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
