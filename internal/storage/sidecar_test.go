package storage_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/version"
)

func testLayout() storage.Layout {
	fs := afero.NewMemMapFs()
	return storage.NewLayout(fs, "/home/.kopi", "/home/.kopi/jdks", "/home/.kopi/cache", "/home/.kopi/shims", "/home/.kopi/tmp")
}

func TestSidecarRoundTripBytewise(t *testing.T) {
	l := testLayout()
	jv, _ := version.Parse("21.0.2+13")
	jdk := model.InstalledJdk{
		Distribution:   "temurin",
		JavaVersion:    jv,
		Architecture:   "x64",
		LibcFlavor:     "glibc",
		PackageType:    model.JDK,
		StructureType:  model.Direct,
		JavaHomeSuffix: "",
		InstalledAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	sidecar := storage.FromInstalledJdk(jdk)

	path := l.SidecarPath("temurin-21.0.2+13-x64-glibc")
	require.NoError(t, l.WriteSidecar(path, sidecar))

	got, err := l.ReadSidecar(path)
	require.NoError(t, err)
	require.Equal(t, sidecar, got)

	data1, err := afero.ReadFile(l.FS, path)
	require.NoError(t, err)
	require.NoError(t, l.WriteSidecar(path, sidecar))
	data2, err := afero.ReadFile(l.FS, path)
	require.NoError(t, err)
	require.Equal(t, data1, data2, "serialize+deserialize is bytewise stable under canonicalization")
}

func TestEnsureDirsAndListInstalled(t *testing.T) {
	l := testLayout()
	require.NoError(t, l.EnsureDirs())

	require.NoError(t, l.FS.MkdirAll(l.InstallDir("temurin-21.0.2-x64"), 0o755))
	names, err := l.ListInstalled()
	require.NoError(t, err)
	require.Contains(t, names, "temurin-21.0.2-x64")
}
