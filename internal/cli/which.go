package cli

import (
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/shim"
)

// newWhichCmd implements `kopi which [tool]`: prints the absolute path
// to the tool binary the shim would dispatch to for the currently
// resolved JDK, defaulting to "java" when no tool is named.
func newWhichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "which [tool]",
		Short: "Print the path to a tool binary in the currently resolved JDK",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			tool := "java"
			if len(args) == 1 {
				tool = args[0]
			}
			resolved, err := resolve.Resolve(a.Layout, ".", nil)
			if err != nil {
				return err
			}
			jdk, err := resolve.BestInstalled(a.Layout, resolved.Request)
			if err != nil {
				return err
			}
			javaHome, _, err := shim.JavaHomeFor(jdk)
			if err != nil {
				return err
			}
			exeSuffix := ""
			if runtime.GOOS == "windows" {
				exeSuffix = ".exe"
			}
			a.Out.Plain("%s", filepath.Join(javaHome, "bin", tool+exeSuffix))
			return nil
		},
	}
}
