package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
)

func writeTarGz(t *testing.T, path string, entries map[string]string, symlinks map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	for name, target := range symlinks {
		hdr := &tar.Header{Name: name, Linkname: target, Typeflag: tar.TypeSymlink, Mode: 0o777}
		require.NoError(t, tw.WriteHeader(hdr))
	}
}

func TestExtractWritesRegularFiles(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "jdk.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"jdk-21/bin/java":    "binary-contents",
		"jdk-21/release":     "JAVA_VERSION=21",
	}, nil)

	dest := filepath.Join(dir, "out")
	err := Extract(context.Background(), model.TarGz, archivePath, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "jdk-21", "release"))
	require.NoError(t, err)
	require.Equal(t, "JAVA_VERSION=21", string(data))
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"../../etc/passwd": "pwned",
	}, nil)

	dest := filepath.Join(dir, "out")
	err := Extract(context.Background(), model.TarGz, archivePath, dest)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.PathTraversal))
}

func TestExtractRejectsSymlinkEscapingRoot(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil-link.tar.gz")
	writeTarGz(t, archivePath, nil, map[string]string{
		"jdk-21/evil": "/etc/passwd",
	})

	dest := filepath.Join(dir, "out")
	err := Extract(context.Background(), model.TarGz, archivePath, dest)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.SymlinkUnsupported))
}

func TestExtractAllowsSymlinkWithinRoot(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "good-link.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"jdk-21/bin/java": "binary",
	}, map[string]string{
		"jdk-21/bin/javac": "java",
	})

	dest := filepath.Join(dir, "out")
	err := Extract(context.Background(), model.TarGz, archivePath, dest)
	require.NoError(t, err)

	fi, err := os.Lstat(filepath.Join(dest, "jdk-21", "bin", "javac"))
	require.NoError(t, err)
	require.True(t, fi.Mode()&os.ModeSymlink != 0)
}
