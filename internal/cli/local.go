package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
)

// newLocalCmd implements `kopi local <request>` (aliased `pin`): writes
// a .kopi-version file in the current directory, per spec §4.1's
// project-file precedence tier. Uses the real os package rather than
// the Layout's afero.Fs since project files live in the caller's
// working tree, not under kopi_home.
func newLocalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "local <request>",
		Aliases: []string{"pin"},
		Short:   "Pin the JDK version for the current project directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := model.ParseVersionRequest(args[0])
			if err != nil {
				return kopierr.Wrap(kopierr.InvalidInput, err, "parsing version request")
			}
			cwd, err := os.Getwd()
			if err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "determining working directory")
			}
			path := filepath.Join(cwd, ".kopi-version")
			if err := os.WriteFile(path, []byte(req.String()+"\n"), 0o644); err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "writing .kopi-version")
			}
			a.Out.Success("pinned %s in %s", req.String(), path)
			return nil
		},
	}
	return cmd
}
