package cli

import (
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/kopierr"
)

// newDefaultCmd implements `kopi default <distribution>`: persists
// default_distribution into config.toml, so a bare version pattern with
// no "dist@" prefix resolves against it (spec §3/§4.1).
func newDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <distribution>",
		Short: "Set the default JDK distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			a.Config.DefaultDistribution = args[0]
			if err := config.Save(a.Layout.ConfigPath(), a.Config); err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "saving config")
			}
			a.Out.Success("default distribution set to %s", args[0])
			return nil
		},
	}
}
