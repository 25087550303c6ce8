package resolve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/version"
)

func testLayout() storage.Layout {
	return storage.NewLayout(afero.NewMemMapFs(), "/home/.kopi", "/home/.kopi/jdks", "/home/.kopi/cache", "/home/.kopi/shims", "/home/.kopi/tmp")
}

func noEnv(string) string { return "" }

func TestResolveEnvVarTakesPrecedence(t *testing.T) {
	layout := testLayout()
	getenv := func(k string) string {
		if k == EnvVar {
			return "temurin@21"
		}
		return ""
	}
	res, err := Resolve(layout, t.TempDir(), getenv)
	require.NoError(t, err)
	require.Equal(t, SourceEnv, res.Source)
	require.Equal(t, "temurin", res.Request.Distribution)
}

func TestResolveProjectFileKopiVersionWinsOverJavaVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kopi-version"), []byte("corretto@17\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".java-version"), []byte("11\n"), 0o644))

	res, err := Resolve(testLayout(), dir, noEnv)
	require.NoError(t, err)
	require.Equal(t, SourceProject, res.Source)
	require.Equal(t, "corretto", res.Request.Distribution)
}

func TestResolveWalksUpToAncestorDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".java-version"), []byte("21\n"), 0o644))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	res, err := Resolve(testLayout(), nested, noEnv)
	require.NoError(t, err)
	require.Equal(t, SourceProject, res.Source)
}

func TestResolveStopsWalkAtGitBoundary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".java-version"), []byte("21\n"), 0o644))
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	nested := filepath.Join(repo, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	layout := testLayout()
	require.NoError(t, afero.WriteFile(layout.FS, layout.GlobalVersionPath(), []byte("temurin@8\n"), 0o644))

	res, err := Resolve(layout, nested, noEnv)
	require.NoError(t, err)
	require.Equal(t, SourceGlobal, res.Source)
}

func TestResolveFallsBackToGlobalDefault(t *testing.T) {
	layout := testLayout()
	require.NoError(t, afero.WriteFile(layout.FS, layout.GlobalVersionPath(), []byte("zulu@17\n"), 0o644))

	res, err := Resolve(layout, t.TempDir(), noEnv)
	require.NoError(t, err)
	require.Equal(t, SourceGlobal, res.Source)
	require.Equal(t, "zulu", res.Request.Distribution)
}

func TestResolveNoVersionConfigured(t *testing.T) {
	_, err := Resolve(testLayout(), t.TempDir(), noEnv)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.NoVersionConfigured))
}

func TestResolveRejectsMalformedProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kopi-version"), []byte("not a version\n"), 0o644))

	_, err := Resolve(testLayout(), dir, noEnv)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.InvalidVersionFile))
}

func TestBestInstalledSelectsMatchingVersion(t *testing.T) {
	layout := testLayout()
	writeInstalled(t, layout, "temurin-17.0.1-x64", "temurin", "17.0.1")
	writeInstalled(t, layout, "temurin-21.0.2-x64", "temurin", "21.0.2")

	req, err := model.ParseVersionRequest("temurin@17")
	require.NoError(t, err)
	best, err := BestInstalled(layout, req)
	require.NoError(t, err)
	require.Equal(t, "17.0.1", best.JavaVersion.String())
}

func TestBestInstalledNoMatch(t *testing.T) {
	layout := testLayout()
	req, err := model.ParseVersionRequest("temurin@21")
	require.NoError(t, err)
	_, err = BestInstalled(layout, req)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.JdkNotInstalled))
}

func writeInstalled(t *testing.T, layout storage.Layout, dirName, dist, javaVersion string) {
	t.Helper()
	jv, err := version.Parse(javaVersion)
	require.NoError(t, err)
	jdk := model.InstalledJdk{
		Distribution: dist,
		JavaVersion:  jv,
		Architecture: "x64",
		PackageType:  model.JDK,
		InstalledAt:  time.Now(),
	}
	require.NoError(t, layout.FS.MkdirAll(layout.InstallDir(dirName), 0o755))
	require.NoError(t, layout.WriteSidecar(layout.SidecarPath(dirName), storage.FromInstalledJdk(jdk)))
}
