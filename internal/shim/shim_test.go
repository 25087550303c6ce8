package shim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/version"
)

func TestToolName(t *testing.T) {
	require.Equal(t, "java", ToolName("/home/.kopi/shims/java"))
	require.Equal(t, "javac", ToolName("javac.exe"))
}

func realLayout(t *testing.T) storage.Layout {
	dir := t.TempDir()
	return storage.NewLayout(afero.NewOsFs(), dir, filepath.Join(dir, "jdks"), filepath.Join(dir, "cache"), filepath.Join(dir, "shims"), filepath.Join(dir, "tmp"))
}

func installFakeJdk(t *testing.T, layout storage.Layout, dirName, dist, javaVersion string) string {
	t.Helper()
	jv, err := version.Parse(javaVersion)
	require.NoError(t, err)
	installPath := layout.InstallDir(dirName)
	binDir := filepath.Join(installPath, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "java"), []byte("#!/bin/sh\necho fake java\n"), 0o755))

	jdk := model.InstalledJdk{
		Distribution:  dist,
		JavaVersion:   jv,
		Architecture:  "x64",
		PackageType:   model.JDK,
		StructureType: model.Direct,
		InstalledAt:   time.Now(),
	}
	require.NoError(t, layout.WriteSidecar(layout.SidecarPath(dirName), storage.FromInstalledJdk(jdk)))
	return installPath
}

func noEnv(string) string { return "" }

func TestBuildResolvesAndDispatchesToInstalledJdk(t *testing.T) {
	layout := realLayout(t)
	installPath := installFakeJdk(t, layout, "temurin-21.0.2-x64", "temurin", "21.0.2")

	getenv := func(k string) string {
		if k == "KOPI_JAVA_VERSION" {
			return "temurin@21"
		}
		return ""
	}

	plan, err := Build(layout, config.Default(t.TempDir()), "java", "", nil, t.TempDir(), getenv, nil, nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(installPath, "bin", "java"), plan.TargetPath)

	var hasJavaHome bool
	for _, kv := range plan.Env {
		if kv == "JAVA_HOME="+installPath {
			hasJavaHome = true
		}
	}
	require.True(t, hasJavaHome)
}

func TestBuildFailsToolNotFound(t *testing.T) {
	layout := realLayout(t)
	installFakeJdk(t, layout, "temurin-21.0.2-x64", "temurin", "21.0.2")

	getenv := func(k string) string {
		if k == "KOPI_JAVA_VERSION" {
			return "temurin@21"
		}
		return ""
	}

	_, err := Build(layout, config.Default(t.TempDir()), "jshell", "", nil, t.TempDir(), getenv, nil, nil)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.ToolNotFound))
}

func TestBuildNeverAutoPromptFailsFast(t *testing.T) {
	layout := realLayout(t)
	cfg := config.Default(t.TempDir())
	cfg.Install.AutoPrompt = config.PromptNever

	getenv := func(k string) string {
		if k == "KOPI_JAVA_VERSION" {
			return "temurin@21"
		}
		return ""
	}

	_, err := Build(layout, cfg, "java", "", nil, t.TempDir(), getenv, nil, nil)
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.JdkNotInstalled))
}

func TestBuildAlwaysAutoPromptInvokesInstaller(t *testing.T) {
	layout := realLayout(t)
	cfg := config.Default(t.TempDir())
	cfg.Install.AutoPrompt = config.PromptAlways

	getenv := func(k string) string {
		if k == "KOPI_JAVA_VERSION" {
			return "temurin@21"
		}
		return ""
	}

	installer := &recordingInstaller{t: t, layout: layout}
	_, err := Build(layout, cfg, "java", "", nil, t.TempDir(), getenv, installer, nil)
	require.NoError(t, err)
	require.True(t, installer.called)
}

type recordingInstaller struct {
	t      *testing.T
	called bool
	layout storage.Layout
}

func (r *recordingInstaller) InstallForShim(req resolve.Resolved) error {
	r.called = true
	installFakeJdk(r.t, r.layout, "temurin-21.0.2-x64", "temurin", "21.0.2")
	return nil
}
