package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/resolve"
)

func newListCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "list [distribution]",
		Short: "List installed JDKs, or available packages with --remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			dist := ""
			if len(args) == 1 {
				dist = args[0]
			}
			if remote {
				return listRemote(cmd.Context(), a, dist)
			}
			return listInstalled(a)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "list packages available from configured metadata sources")
	return cmd
}

func listInstalled(a *app) error {
	names, err := a.Layout.ListInstalled()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.Out.Info("no JDKs installed; run `kopi install <version>`")
		return nil
	}
	current, _ := resolve.Resolve(a.Layout, ".", nil)
	for _, name := range names {
		sc, err := a.Layout.ReadSidecar(a.Layout.SidecarPath(name))
		if err != nil {
			a.Out.Warn("%s: unreadable sidecar (%v)", name, err)
			continue
		}
		jdk, err := sc.ToInstalledJdk(a.Layout.InstallDir(name))
		if err != nil {
			a.Out.Warn("%s: %v", name, err)
			continue
		}
		marker := "  "
		if current.Request.Distribution != "" || len(current.Request.Pattern.Components) > 0 {
			if current.Request.MatchesInstalled(jdk) {
				marker = "* "
			}
		}
		a.Out.Plain("%s%s@%s (%s/%s)", marker, jdk.Distribution, jdk.JavaVersion.String(), jdk.Architecture, jdk.LibcFlavor)
	}
	return nil
}

func listRemote(ctx context.Context, a *app, dist string) error {
	dists := []string{dist}
	if dist == "" {
		var err error
		if dists, err = a.Provider.ListDistributions(ctx); err != nil {
			return err
		}
	}

	filter := providers.Filter{
		OperatingSystem: platform.NormalizeOS(a.Probe.OS),
		Architecture:    platform.NormalizeArch(a.Probe.Arch),
		LibcFlavor:      string(a.Probe.Libc.Encode()),
	}

	var any bool
	for _, d := range dists {
		f := filter
		f.Distribution = d
		pkgs, err := a.Provider.ListPackages(ctx, f)
		if err != nil {
			return err
		}
		for _, pkg := range pkgs {
			printRemotePackage(a, pkg)
			any = true
		}
	}
	if !any {
		a.Out.Info("no packages available for this platform")
	}
	return nil
}

func printRemotePackage(a *app, pkg model.Package) {
	status := string(pkg.ReleaseStatus)
	a.Out.Plain("  %s@%s [%s] (%s/%s/%s)", pkg.Distribution, pkg.JavaVersion.String(), status,
		pkg.OperatingSystem, pkg.Architecture, pkg.LibcFlavor)
}
