package cli

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/storage"
)

// knownTools is the set of per-tool shims `setup` installs, per spec
// §4.2's "java, javac, jar, jshell, etc."
var knownTools = []string{
	"java", "javac", "jar", "jshell", "javadoc", "jlink", "jdeps",
	"jcmd", "jps", "jstack", "jstat", "jmap", "keytool",
}

// newSetupCmd implements `kopi setup`: creates the kopi_home subtree
// and installs one shim per known tool, per spec §6.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the kopi_home directory tree and install shims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			if err := a.Layout.EnsureDirs(); err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "creating kopi_home directories")
			}

			if _, err := os.Stat(a.Layout.ConfigPath()); os.IsNotExist(err) {
				if err := config.Save(a.Layout.ConfigPath(), a.Config); err != nil {
					return kopierr.Wrap(kopierr.IoError, err, "writing default config.toml")
				}
			}

			exeSuffix := ""
			if runtime.GOOS == "windows" {
				exeSuffix = ".exe"
			}
			shimSrc, err := shimSourcePath(exeSuffix)
			if err != nil {
				return kopierr.Wrap(kopierr.IoError, err, "locating kopi-shim binary")
			}

			lockTimeout := time.Duration(a.Config.Install.LockTimeoutSeconds) * time.Second
			lock, err := a.Layout.Acquire(cmd.Context(), storage.ShimsLockKey, lockTimeout)
			if err != nil {
				return err
			}
			defer lock.Release()

			installed := 0
			for _, tool := range knownTools {
				dst := a.Layout.ShimPath(tool, exeSuffix)
				if err := installShim(shimSrc, dst); err != nil {
					a.Out.Warn("installing shim for %s: %v", tool, err)
					continue
				}
				installed++
			}
			a.Out.Success("kopi_home ready at %s, %d/%d shims installed in %s", a.kopiHome, installed, len(knownTools), a.Layout.ShimsRoot)
			return nil
		},
	}
}

// shimSourcePath locates the kopi-shim binary installed alongside the
// running kopi executable.
func shimSourcePath(exeSuffix string) (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(self), "kopi-shim"+exeSuffix), nil
}

// installShim places a copy of (or, on POSIX, a hardlink to) src at dst,
// replacing whatever is already there.
func installShim(src, dst string) error {
	_ = os.Remove(dst)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Link(src, dst); err == nil {
			return nil
		}
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
