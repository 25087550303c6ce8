package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/resolve"
)

func newInstallCmd() *cobra.Command {
	var offline, noProgress, force, dryRun bool
	var timeoutSecs int

	cmd := &cobra.Command{
		Use:   "install <request>",
		Short: "Install a JDK matching the given version request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := model.ParseVersionRequest(args[0])
			if err != nil {
				return kopierr.Wrap(kopierr.InvalidInput, err, "parsing version request")
			}

			if offline {
				a.Provider.Offline = true
			}
			if noProgress {
				a.Config.Progress.Style = "off"
			}

			ctx := context.Background()
			if timeoutSecs > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
				defer cancel()
			}

			if dryRun {
				pkg, err := a.Orchestrator.ResolvePackage(ctx, req)
				if err != nil {
					return err
				}
				a.Out.Info("would install %s@%s (%s/%s/%s, %s)", pkg.Distribution, pkg.JavaVersion.String(),
					pkg.OperatingSystem, pkg.Architecture, pkg.LibcFlavor, pkg.ArchiveType)
				return nil
			}

			if !force {
				if _, err := resolve.BestInstalled(a.Layout, req); err == nil {
					a.Out.Info("%s is already installed; use --force to reinstall", req.String())
					return nil
				}
			}

			outcome, err := a.Orchestrator.Install(ctx, req)
			if err != nil {
				return err
			}
			if outcome.AlreadyInstalled {
				a.Out.Info("%s is already installed at %s", req.String(), outcome.Jdk.InstallPath)
				return nil
			}
			a.Out.Success("installed %s@%s at %s", outcome.Jdk.Distribution, outcome.Jdk.JavaVersion.String(), outcome.Jdk.InstallPath)
			if outcome.MissingSidecar {
				a.Out.Warn("sidecar metadata could not be written; run `kopi doctor` to repair")
			}
			for _, ierr := range outcome.IntegrationErrs {
				a.Out.Warn("toolchain integration: %v", ierr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "fail rather than reach the network")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the download progress indicator")
	cmd.Flags().BoolVar(&force, "force", false, "reinstall even if already installed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve the package that would be installed without installing it")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "overall timeout in seconds for the install")
	return cmd
}
