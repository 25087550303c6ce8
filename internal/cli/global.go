package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
)

// newGlobalCmd implements `kopi global <request>`: writes the global
// default version file consulted by resolve.Resolve when neither the
// environment nor any project file names a version, per spec §4.1.
func newGlobalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "global <request>",
		Short: "Set the global default JDK version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := model.ParseVersionRequest(args[0])
			if err != nil {
				return kopierr.Wrap(kopierr.InvalidInput, err, "parsing version request")
			}
			path := a.Layout.GlobalVersionPath()
			if err := afero.WriteFile(a.Layout.FS, path, []byte(req.String()+"\n"), 0o644); err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "writing global default version")
			}
			a.Out.Success("global default set to %s", req.String())
			return nil
		},
	}
}
