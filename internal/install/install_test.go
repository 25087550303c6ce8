package install

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/metadata"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/toolchain"
	"github.com/kopi-lang/kopi/internal/version"
)

// fakeSource is a single-package providers.Source test double, serving
// the tar.gz archive built by a wrapping httptest server.
type fakeSource struct {
	pkg model.Package
}

func (f fakeSource) Kind() providers.Kind { return providers.KindHTTP }
func (f fakeSource) ListDistributions(ctx context.Context) ([]string, error) {
	return []string{f.pkg.Distribution}, nil
}
func (f fakeSource) ListPackages(ctx context.Context, filter providers.Filter) ([]model.Package, error) {
	return []model.Package{f.pkg}, nil
}
func (f fakeSource) FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error) {
	pkg.Complete = true
	return pkg, nil
}

func buildArchive(t *testing.T) (path string, checksum string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "jdk.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	content := "binary-contents"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "jdk-21/bin/java", Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	return path, hex.EncodeToString(sum[:])
}

func testOrchestrator(t *testing.T, archivePath, checksum string) (*Orchestrator, storage.Layout) {
	t.Helper()
	home := t.TempDir()
	layout := storage.NewLayout(afero.NewOsFs(), home, filepath.Join(home, "jdks"), filepath.Join(home, "cache"), filepath.Join(home, "shims"), filepath.Join(home, "tmp"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	}))
	t.Cleanup(server.Close)

	jv, err := version.Parse("21.0.2")
	require.NoError(t, err)

	pkg := model.Package{
		Distribution:      "temurin",
		JavaVersion:       jv,
		Architecture:      platform.NormalizeArch(platform.Current().Arch),
		OperatingSystem:   platform.NormalizeOS(platform.Current().OS),
		LibcFlavor:        string(platform.Current().Libc.Encode()),
		PackageType:       model.JDK,
		ArchiveType:       model.TarGz,
		DownloadURL:       server.URL + "/jdk.tar.gz",
		Checksum:          checksum,
		ChecksumAlgorithm: "sha256",
		ReleaseStatus:     model.GA,
		Complete:          true,
	}

	cfg := config.Default(home)
	cfg.Install.LockTimeoutSeconds = 5

	provider := metadata.New(layout, time.Duration(cfg.Metadata.TTLSeconds)*time.Second, cfg.Metadata.MaxCacheMB, false, fakeSource{pkg: pkg})

	o := &Orchestrator{
		Layout:    layout,
		Provider:  provider,
		Config:    cfg,
		Probe:     platform.Current(),
		Toolchain: toolchain.Writer{GradleEnabled: true, GradleHome: t.TempDir()},
	}
	return o, layout
}

func TestInstallRunsFullPipeline(t *testing.T) {
	archivePath, checksum := buildArchive(t)
	o, layout := testOrchestrator(t, archivePath, checksum)

	req := model.VersionRequest{Distribution: "temurin", Pattern: mustParse(t, "21")}
	outcome, err := o.Install(context.Background(), req)
	require.NoError(t, err)
	require.False(t, outcome.AlreadyInstalled)
	require.False(t, outcome.MissingSidecar)
	require.Empty(t, outcome.IntegrationErrs)

	javaBin := filepath.Join(outcome.Jdk.InstallPath, outcome.Jdk.JavaHomeSuffix, "bin", "java")
	info, err := os.Stat(javaBin)
	require.NoError(t, err)
	require.False(t, info.IsDir())

	sc, err := layout.ReadSidecar(layout.SidecarPath(filepath.Base(outcome.Jdk.InstallPath)))
	require.NoError(t, err)
	require.Equal(t, "temurin", sc.Distribution)
}

func TestInstallShortCircuitsWhenAlreadyInstalled(t *testing.T) {
	archivePath, checksum := buildArchive(t)
	o, _ := testOrchestrator(t, archivePath, checksum)

	req := model.VersionRequest{Distribution: "temurin", Pattern: mustParse(t, "21")}
	first, err := o.Install(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.AlreadyInstalled)

	second, err := o.Install(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.AlreadyInstalled)
	require.Equal(t, first.Jdk.InstallPath, second.Jdk.InstallPath)
}

func TestInstallFailsOnChecksumMismatch(t *testing.T) {
	archivePath, _ := buildArchive(t)
	o, layout := testOrchestrator(t, archivePath, "0000000000000000000000000000000000000000000000000000000000000000")

	req := model.VersionRequest{Distribution: "temurin", Pattern: mustParse(t, "21")}
	_, err := o.Install(context.Background(), req)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.ChecksumMismatch))

	installed, err := layout.ListInstalled()
	require.NoError(t, err)
	require.Empty(t, installed)
}

func TestInstallRejectsPlatformMismatch(t *testing.T) {
	archivePath, checksum := buildArchive(t)
	o, _ := testOrchestrator(t, archivePath, checksum)
	o.Probe = platform.Probe{OS: o.Probe.OS, Arch: "bogus-arch", Libc: o.Probe.Libc}

	req := model.VersionRequest{Distribution: "temurin", Pattern: mustParse(t, "21")}
	_, err := o.Install(context.Background(), req)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.PlatformMismatch))
}

func TestUninstallRemovesInstallAndSidecar(t *testing.T) {
	archivePath, checksum := buildArchive(t)
	o, layout := testOrchestrator(t, archivePath, checksum)

	req := model.VersionRequest{Distribution: "temurin", Pattern: mustParse(t, "21")}
	outcome, err := o.Install(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, o.Uninstall(outcome.Jdk))

	_, err = os.Stat(outcome.Jdk.InstallPath)
	require.True(t, os.IsNotExist(err))

	installed, err := layout.ListInstalled()
	require.NoError(t, err)
	require.Empty(t, installed)
}

func mustParse(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}
