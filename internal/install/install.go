// Package install implements Kopi's installation orchestrator: the
// 13-stage pipeline that turns a VersionRequest into an installed JDK on
// disk (spec §4.4). Grounded on Jenvy's DownloadJDK
// (internal/cmd/download.go), which already sequences search → confirm
// → download → extract for a single JDK; generalized here to add
// platform matching, cross-process locking, checksum verification,
// structure detection, sidecar persistence, and toolchain integration.
package install

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kopi-lang/kopi/internal/archive"
	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/download"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/metadata"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/structure"
	"github.com/kopi-lang/kopi/internal/toolchain"
)

// Outcome reports whether a fresh install happened, a prior install was
// reused, or installation completed but a non-fatal step (toolchain
// integration, sidecar write) failed.
type Outcome struct {
	Jdk              model.InstalledJdk
	AlreadyInstalled bool
	MissingSidecar   bool
	IntegrationErrs  []error
}

// Orchestrator runs the installation pipeline against one storage
// layout, metadata provider, and config.
type Orchestrator struct {
	Layout    storage.Layout
	Provider  *metadata.Provider
	Config    config.Config
	Probe     platform.Probe
	Toolchain toolchain.Writer
	Client    *http.Client
}

// InstallForShim adapts Orchestrator to shim.AutoInstaller, letting the
// shim trigger an install synchronously when install.auto_prompt allows
// it (spec §4.2).
func (o *Orchestrator) InstallForShim(resolved resolve.Resolved) error {
	_, err := o.Install(context.Background(), resolved.Request)
	return err
}

// ResolvePackage runs stages 1-2 only (resolve + platform match) without
// touching disk or network beyond the metadata query, so `kopi install
// --dry-run` can show what an install would do without doing it.
func (o *Orchestrator) ResolvePackage(ctx context.Context, req model.VersionRequest) (model.Package, error) {
	pkg, err := o.resolvePackage(ctx, req)
	if err != nil {
		return model.Package{}, err
	}
	if err := o.checkPlatform(pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// Install runs the 13-stage pipeline for req.
func (o *Orchestrator) Install(ctx context.Context, req model.VersionRequest) (Outcome, error) {
	pkg, err := o.resolvePackage(ctx, req) // stage 1
	if err != nil {
		return Outcome{}, err
	}

	if err := o.checkPlatform(pkg); err != nil { // stage 2
		return Outcome{}, err
	}

	dirName := installDirName(pkg)
	lockKey := storage.LockKey(pkg.Distribution, pkg.JavaVersion.String(), pkg.Architecture, pkg.LibcFlavor)
	lockTimeout := time.Duration(o.Config.Install.LockTimeoutSeconds) * time.Second

	lock, err := o.Layout.Acquire(ctx, lockKey, lockTimeout) // stage 3
	if err != nil {
		return Outcome{}, err
	}
	defer lock.Release()

	if exists, jdk := o.alreadyInstalled(dirName); exists {
		return Outcome{Jdk: jdk, AlreadyInstalled: true}, nil
	}

	if !pkg.Complete { // stage 4
		pkg, err = o.Provider.FetchDetails(ctx, o.sourceKindFor(pkg), pkg)
		if err != nil {
			return Outcome{}, err
		}
	}

	tmpBase := randomName()
	archivePath := filepath.Join(o.Layout.TmpRoot, tmpBase+".archive")
	extractDir := filepath.Join(o.Layout.TmpRoot, tmpBase+".dir")
	defer cleanupTmp(archivePath, extractDir)

	if err := os.MkdirAll(o.Layout.TmpRoot, 0o755); err != nil {
		return Outcome{}, kopierr.Wrap(kopierr.IoError, err, "creating tmp root")
	}

	d := download.New(o.httpClient()) // stage 5-6
	if err := d.Do(ctx, download.Request{
		URL:               pkg.DownloadURL,
		DestPath:          archivePath,
		ExpectedSize:      pkg.Size,
		Checksum:          pkg.Checksum,
		ChecksumAlgorithm: pkg.ChecksumAlgorithm,
		ConnectTimeout:    time.Duration(o.Config.Download.ConnectTimeoutSeconds) * time.Second,
		TotalTimeout:      time.Duration(o.Config.Download.TotalTimeoutSeconds) * time.Second,
		MaxRetries:        o.Config.Download.Retries,
		Progress:          download.ProgressStyle(o.Config.Progress.Style),
	}); err != nil {
		return Outcome{}, err
	}

	if err := archive.Extract(ctx, pkg.ArchiveType, archivePath, extractDir); err != nil { // stage 7
		return Outcome{}, err
	}

	goos := platform.NormalizeOS(o.Probe.OS) // stage 8
	structResult, err := structure.Detect(goos, extractDir)
	if err != nil {
		return Outcome{}, err
	}

	javaHome := filepath.Join(extractDir, structResult.JavaHomeSuffix) // stage 9
	javaBin := filepath.Join(javaHome, "bin", "java"+exeSuffix(goos))
	if info, statErr := os.Stat(javaBin); statErr != nil || info.IsDir() {
		return Outcome{}, kopierr.Newf(kopierr.InvalidJdkStructure, "extracted archive has no bin/java%s at %s", exeSuffix(goos), javaHome)
	}

	installDir := o.Layout.InstallDir(dirName) // stage 10
	if err := os.MkdirAll(filepath.Dir(installDir), 0o755); err != nil {
		return Outcome{}, kopierr.Wrap(kopierr.IoError, err, "creating jdks root")
	}
	if err := os.Rename(extractDir, installDir); err != nil {
		if os.IsExist(err) || isAlreadyInstalledRace(installDir) {
			os.RemoveAll(extractDir)
		} else {
			return Outcome{}, kopierr.Wrap(kopierr.IoError, err, "promoting extracted JDK")
		}
	}

	jdk := model.InstalledJdk{
		Distribution:        pkg.Distribution,
		JavaVersion:         pkg.JavaVersion,
		DistributionVersion: pkg.DistributionVersion,
		Architecture:        pkg.Architecture,
		LibcFlavor:          pkg.LibcFlavor,
		PackageType:         pkg.PackageType,
		InstallPath:         installDir,
		StructureType:       structResult.StructureType,
		JavaHomeSuffix:      structResult.JavaHomeSuffix,
		InstalledAt:         time.Now(),
		OriginalPackageID:   pkg.ID(),
	}

	sidecarErr := o.Layout.WriteSidecar(o.Layout.SidecarPath(dirName), storage.FromInstalledJdk(jdk)) // stage 11

	integrationErrs := o.Toolchain.Integrate(jdk) // stage 12

	return Outcome{
		Jdk:             jdk,
		MissingSidecar:  sidecarErr != nil,
		IntegrationErrs: integrationErrs,
	}, nil
}

// Uninstall removes an installed JDK, its sidecar, and its toolchain
// registrations, per spec §6's uninstall command.
func (o *Orchestrator) Uninstall(jdk model.InstalledJdk) error {
	dirName := filepath.Base(jdk.InstallPath)
	lockKey := storage.LockKey(jdk.Distribution, jdk.JavaVersion.String(), jdk.Architecture, jdk.LibcFlavor)
	lock, err := o.Layout.Acquire(context.Background(), lockKey, time.Duration(o.Config.Install.LockTimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	defer lock.Release()

	o.Toolchain.Remove(jdk)

	if err := o.Layout.FS.RemoveAll(jdk.InstallPath); err != nil {
		return kopierr.Wrap(kopierr.IoError, err, "removing install directory")
	}
	if err := o.Layout.FS.Remove(o.Layout.SidecarPath(dirName)); err != nil && !os.IsNotExist(err) {
		return kopierr.Wrap(kopierr.IoError, err, "removing sidecar")
	}
	return nil
}

func (o *Orchestrator) resolvePackage(ctx context.Context, req model.VersionRequest) (model.Package, error) {
	filter := providers.Filter{
		Distribution:    req.Distribution,
		OperatingSystem: platform.NormalizeOS(o.Probe.OS),
		Architecture:    platform.NormalizeArch(o.Probe.Arch),
		LibcFlavor:      string(o.Probe.Libc.Encode()),
	}
	if req.HasType {
		filter.PackageType = req.PackageType
		filter.HasPackageType = true
	}
	packages, err := o.Provider.ListPackages(ctx, filter)
	if err != nil {
		return model.Package{}, err
	}
	pkg, ok := model.BestPackage(packages, req, o.Config.DefaultDistribution)
	if !ok {
		return model.Package{}, kopierr.Newf(kopierr.InvalidInput, "no package matches %s", req.String())
	}
	return pkg, nil
}

// checkPlatform re-validates the chosen package against this binary's
// probe, fatally on any mismatch — libc especially, per spec §4.4 stage
// 2's "never silently tolerated" requirement — even though the query
// filter already asked sources to narrow to this platform.
func (o *Orchestrator) checkPlatform(pkg model.Package) error {
	if o.Probe.Matches(pkg.OperatingSystem, pkg.Architecture, platform.UpstreamEncoding(pkg.LibcFlavor)) {
		return nil
	}
	wantOS := platform.NormalizeOS(o.Probe.OS)
	wantArch := platform.NormalizeArch(o.Probe.Arch)
	wantLibc := o.Probe.Libc.Encode()
	return kopierr.Newf(kopierr.PlatformMismatch, "package %s/%s/%s does not match this machine's %s/%s/%s",
		pkg.OperatingSystem, pkg.Architecture, pkg.LibcFlavor, wantOS, wantArch, wantLibc).
		WithField("expected", fmt.Sprintf("%s/%s/%s", wantOS, wantArch, wantLibc)).
		WithField("got", fmt.Sprintf("%s/%s/%s", pkg.OperatingSystem, pkg.Architecture, pkg.LibcFlavor)).
		WithHint("choose a distribution built for this machine's platform")
}

func (o *Orchestrator) alreadyInstalled(dirName string) (bool, model.InstalledJdk) {
	sc, err := o.Layout.ReadSidecar(o.Layout.SidecarPath(dirName))
	if err != nil {
		return false, model.InstalledJdk{}
	}
	jdk, err := sc.ToInstalledJdk(o.Layout.InstallDir(dirName))
	if err != nil {
		return false, model.InstalledJdk{}
	}
	return true, jdk
}

func (o *Orchestrator) sourceKindFor(pkg model.Package) providers.Kind {
	// The api source is the only one that ever produces an incomplete
	// record (spec §4.3); http/local always set Complete=true.
	return providers.KindAPI
}

func (o *Orchestrator) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: time.Duration(o.Config.Download.TotalTimeoutSeconds) * time.Second}
}

func installDirName(pkg model.Package) string {
	name := pkg.Distribution + "-" + pkg.JavaVersion.String() + "-" + pkg.Architecture
	if pkg.OperatingSystem == "linux" && pkg.LibcFlavor != "" {
		name += "-" + pkg.LibcFlavor
	}
	return name
}

func exeSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}

func randomName() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func cleanupTmp(archivePath, extractDir string) {
	if os.Getenv("KOPI_KEEP_TMP") == "1" {
		return
	}
	os.Remove(archivePath)
	os.Remove(archivePath + ".part")
	os.RemoveAll(extractDir)
}

func isAlreadyInstalledRace(installDir string) bool {
	info, err := os.Stat(installDir)
	return err == nil && info.IsDir()
}
