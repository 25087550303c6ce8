// Package storage implements Kopi's canonical on-disk layout (spec §4.7):
// installed JDKs and their sidecars, the metadata cache, shims, temp
// space, and cross-process locks. Filesystem access goes through an
// afero.Fs so tests exercise the same code against an in-memory
// filesystem instead of touching the real disk; the lock files alone
// are opened through os, and only when the Fs is an *afero.OsFs.
package storage

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Layout resolves the well-known subdirectories under kopi_home.
type Layout struct {
	FS        afero.Fs
	KopiHome  string
	JdksRoot  string
	CacheRoot string
	ShimsRoot string
	TmpRoot   string
}

// NewLayout builds a Layout from explicit roots (as loaded from Config).
func NewLayout(fs afero.Fs, kopiHome, jdksRoot, cacheRoot, shimsRoot, tmpRoot string) Layout {
	return Layout{
		FS:        fs,
		KopiHome:  kopiHome,
		JdksRoot:  jdksRoot,
		CacheRoot: cacheRoot,
		ShimsRoot: shimsRoot,
		TmpRoot:   tmpRoot,
	}
}

// LocksRoot is always a fixed subdirectory of kopi_home per spec §4.7.
func (l Layout) LocksRoot() string { return filepath.Join(l.KopiHome, "locks") }

// ConfigPath is the path to config.toml.
func (l Layout) ConfigPath() string { return filepath.Join(l.KopiHome, "config.toml") }

// GlobalVersionPath is the path to the global default version file.
func (l Layout) GlobalVersionPath() string { return filepath.Join(l.KopiHome, "version") }

// InstallDir returns the install directory for a directory name (spec §4.7).
func (l Layout) InstallDir(dirName string) string { return filepath.Join(l.JdksRoot, dirName) }

// SidecarPath returns the sidecar path for a directory name.
func (l Layout) SidecarPath(dirName string) string {
	return filepath.Join(l.JdksRoot, dirName+".meta.json")
}

// CacheDir returns the cache subdirectory for one source kind.
func (l Layout) CacheDir(sourceKind string) string { return filepath.Join(l.CacheRoot, sourceKind) }

// ShimPath returns the shim executable path for one tool name.
func (l Layout) ShimPath(tool, exeSuffix string) string {
	return filepath.Join(l.ShimsRoot, tool+exeSuffix)
}

// EnsureDirs creates every well-known directory, used by `setup`.
func (l Layout) EnsureDirs() error {
	dirs := []string{
		l.KopiHome, l.JdksRoot, l.CacheRoot, l.ShimsRoot, l.TmpRoot, l.LocksRoot(),
		l.CacheDir("api"), l.CacheDir("http"), l.CacheDir("local"),
	}
	for _, d := range dirs {
		if err := l.FS.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ListInstalled returns the names of the directories directly under
// JdksRoot, one per installed JDK, without taking a lock (spec §5). It
// does not read or validate sidecars; a missing JdksRoot yields none.
func (l Layout) ListInstalled() ([]string, error) {
	entries, err := afero.ReadDir(l.FS, l.JdksRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
