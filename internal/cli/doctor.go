package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/platform"
)

// newDoctorCmd implements `kopi doctor`: a self-check across libc
// compatibility, shim PATH presence, sidecar consistency, and cache
// size, per spec §6.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run self-diagnostics on the kopi installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			problems := 0

			problems += checkShimsOnPath(a)
			problems += checkSidecars(a)
			problems += checkCacheSize(a)

			if problems == 0 {
				a.Out.Success("no problems found")
			} else {
				a.Out.Warn("%d problem(s) found", problems)
			}
			return nil
		},
	}
}

func checkShimsOnPath(a *app) int {
	pathDirs := strings.Split(os.Getenv("PATH"), string(os.PathListSeparator))
	for _, dir := range pathDirs {
		if filepath.Clean(dir) == filepath.Clean(a.Layout.ShimsRoot) {
			a.Out.Success("shims directory is on PATH")
			return 0
		}
	}
	a.Out.Warn("shims directory %s is not on PATH; add it to your shell profile", a.Layout.ShimsRoot)
	return 1
}

func checkSidecars(a *app) int {
	names, err := a.Layout.ListInstalled()
	if err != nil {
		a.Out.Warn("listing installed JDKs: %v", err)
		return 1
	}
	problems := 0
	for _, name := range names {
		sc, err := a.Layout.ReadSidecar(a.Layout.SidecarPath(name))
		if err != nil {
			a.Out.Warn("%s: missing or unreadable sidecar (%v); run `kopi install` again to repair", name, err)
			problems++
			continue
		}
		jdk, err := sc.ToInstalledJdk(a.Layout.InstallDir(name))
		if err != nil {
			a.Out.Warn("%s: invalid sidecar (%v)", name, err)
			problems++
			continue
		}
		wantArch := platform.NormalizeArch(a.Probe.Arch)
		wantLibc := a.Probe.Libc.Encode()
		if jdk.Architecture != wantArch || platform.LibcFlavor(jdk.LibcFlavor).Encode() != wantLibc {
			a.Out.Warn("%s: installed for %s/%s, this host is %s/%s", name,
				jdk.Architecture, jdk.LibcFlavor, wantArch, a.Probe.Libc)
			problems++
		}
	}
	if problems == 0 && len(names) > 0 {
		a.Out.Success("%d installed JDK(s), all sidecars consistent", len(names))
	}
	return problems
}

func checkCacheSize(a *app) int {
	size, _, err := cacheFootprint(a.Layout.FS, a.Layout.CacheRoot)
	if err != nil {
		a.Out.Warn("inspecting cache: %v", err)
		return 1
	}
	limitBytes := int64(a.Config.Metadata.MaxCacheMB) * 1024 * 1024
	if limitBytes > 0 && size > limitBytes {
		a.Out.Warn("metadata cache is %.1f MiB, over the %d MiB limit; run `kopi cache clear`",
			float64(size)/(1024*1024), a.Config.Metadata.MaxCacheMB)
		return 1
	}
	return 0
}
