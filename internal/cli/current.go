package cli

import (
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/resolve"
)

// newCurrentCmd implements `kopi current`: prints the resolved version
// request, its source (env/project/global), and the installed JDK it
// matches, per spec §6.
func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the currently resolved JDK and where that resolution came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			resolved, err := resolve.Resolve(a.Layout, ".", nil)
			if err != nil {
				return err
			}
			jdk, err := resolve.BestInstalled(a.Layout, resolved.Request)
			if err != nil {
				a.Out.Warn("%s resolved to %s, but no matching JDK is installed", resolved.Source, resolved.Request.String())
				return err
			}
			if resolved.Path != "" {
				a.Out.Plain("%s@%s (from %s: %s)", jdk.Distribution, jdk.JavaVersion.String(), resolved.Source, resolved.Path)
			} else {
				a.Out.Plain("%s@%s (from %s)", jdk.Distribution, jdk.JavaVersion.String(), resolved.Source)
			}
			a.Out.Plain("  %s", jdk.InstallPath)
			return nil
		},
	}
}
