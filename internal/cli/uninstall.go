package cli

import (
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/resolve"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <request>",
		Short: "Remove an installed JDK matching the given version request",
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
			if err := a.Orchestrator.Uninstall(jdk); err != nil {
				return err
			}
			a.Out.Success("uninstalled %s@%s", jdk.Distribution, jdk.JavaVersion.String())
			return nil
		},
	}
}
