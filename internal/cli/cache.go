package cli

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

// newCacheCmd groups the `kopi cache info|refresh|clear` subcommands
// that inspect and manage the on-disk metadata cache under
// Layout.CacheRoot (spec §4.3).
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the metadata cache",
	}
	cmd.AddCommand(newCacheInfoCmd(), newCacheRefreshCmd(), newCacheClearCmd())
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the metadata cache location and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			size, fileCount, err := cacheFootprint(a.Layout.FS, a.Layout.CacheRoot)
			if err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "inspecting cache")
			}
			a.Out.Plain("%s", a.Layout.CacheRoot)
			a.Out.Plain("  %d files, %.1f MiB (limit %d MiB)", fileCount, float64(size)/(1024*1024), a.Config.Metadata.MaxCacheMB)
			return nil
		},
	}
}

func newCacheRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Drop the in-process metadata cache so the next query re-consults sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			a.Provider.Refresh()
			a.Out.Success("metadata cache refreshed")
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the on-disk metadata cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			a.Provider.Refresh()
			if err := a.Layout.FS.RemoveAll(a.Layout.CacheRoot); err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "clearing cache")
			}
			a.Out.Success("cache cleared at %s", a.Layout.CacheRoot)
			return nil
		},
	}
}

func cacheFootprint(fs afero.Fs, root string) (size int64, files int, err error) {
	walkErr := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
			files++
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return 0, 0, walkErr
	}
	return size, files, nil
}
