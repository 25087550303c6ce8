package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/model"
)

func mkJava(t *testing.T, dir string) {
	t.Helper()
	binDir := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "java"), []byte("#!/bin/sh"), 0o755))
}

func TestDetectDirectNonMac(t *testing.T) {
	root := t.TempDir()
	top := filepath.Join(root, "jdk-21.0.2+13")
	mkJava(t, top)

	res, err := Detect("linux", root)
	require.NoError(t, err)
	require.Equal(t, model.Direct, res.StructureType)
	require.Equal(t, "jdk-21.0.2+13", res.JavaHomeSuffix)
}

func TestDetectDirectRootItself(t *testing.T) {
	root := t.TempDir()
	mkJava(t, root)

	res, err := Detect("linux", root)
	require.NoError(t, err)
	require.Equal(t, model.Direct, res.StructureType)
	require.Equal(t, "", res.JavaHomeSuffix)
}

func TestDetectMacBundle(t *testing.T) {
	root := t.TempDir()
	top := filepath.Join(root, "jdk-21.jdk")
	mkJava(t, filepath.Join(top, "Contents", "Home"))

	res, err := Detect("mac", root)
	require.NoError(t, err)
	require.Equal(t, model.Bundle, res.StructureType)
	require.Equal(t, "jdk-21.jdk/Contents/Home", res.JavaHomeSuffix)
}

func TestDetectMacDirect(t *testing.T) {
	root := t.TempDir()
	mkJava(t, root)

	res, err := Detect("mac", root)
	require.NoError(t, err)
	require.Equal(t, model.Direct, res.StructureType)
	require.Equal(t, "", res.JavaHomeSuffix)
}

func TestDetectFailsWithoutJava(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	_, err := Detect("linux", root)
	require.Error(t, err)
}
