package toolchain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/version"
)

func sampleJdk(t *testing.T, installPath string) model.InstalledJdk {
	t.Helper()
	jv, err := version.Parse("21.0.2")
	require.NoError(t, err)
	return model.InstalledJdk{
		Distribution: "temurin",
		JavaVersion:  jv,
		InstallPath:  installPath,
	}
}

func TestGradleIntegrateThenRemoveRoundTrips(t *testing.T) {
	home := t.TempDir()
	w := Writer{GradleEnabled: true, GradleHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")

	errs := w.Integrate(jdk)
	require.Empty(t, errs)

	data, err := os.ReadFile(gradlePath(home))
	require.NoError(t, err)
	require.Contains(t, string(data), jdk.InstallPath)

	errs = w.Remove(jdk)
	require.Empty(t, errs)

	data, err = os.ReadFile(gradlePath(home))
	require.NoError(t, err)
	require.NotContains(t, string(data), jdk.InstallPath)
}

func TestGradleIntegrateMergesWithExistingEntries(t *testing.T) {
	home := t.TempDir()
	path := gradlePath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("org.gradle.java.installations.paths=/opt/jdk8\norg.gradle.daemon=true\n"), 0o644))

	w := Writer{GradleEnabled: true, GradleHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")
	require.Empty(t, w.Integrate(jdk))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "/opt/jdk8")
	require.Contains(t, content, jdk.InstallPath)
	require.Contains(t, content, "org.gradle.daemon=true")
}

func TestGradleIntegrateDeduplicates(t *testing.T) {
	home := t.TempDir()
	w := Writer{GradleEnabled: true, GradleHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")

	require.Empty(t, w.Integrate(jdk))
	require.Empty(t, w.Integrate(jdk))

	data, err := os.ReadFile(gradlePath(home))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), jdk.InstallPath))
}

func TestMavenIntegrateCreatesToolchainsFile(t *testing.T) {
	home := t.TempDir()
	w := Writer{MavenEnabled: true, MavenHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")

	require.Empty(t, w.Integrate(jdk))

	data, err := os.ReadFile(mavenPath(home))
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "Eclipse Adoptium")
	require.Contains(t, content, jdk.InstallPath)
}

func TestMavenRemoveDeregisters(t *testing.T) {
	home := t.TempDir()
	w := Writer{MavenEnabled: true, MavenHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")

	require.Empty(t, w.Integrate(jdk))
	require.Empty(t, w.Remove(jdk))

	data, err := os.ReadFile(mavenPath(home))
	require.NoError(t, err)
	require.NotContains(t, string(data), jdk.InstallPath)
}

func TestBackupFileCreatedOnFirstModification(t *testing.T) {
	home := t.TempDir()
	path := gradlePath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("org.gradle.daemon=true\n"), 0o644))

	w := Writer{GradleEnabled: true, GradleHome: home}
	jdk := sampleJdk(t, "/home/.kopi/jdks/temurin-21.0.2-x64")
	require.Empty(t, w.Integrate(jdk))

	_, err := os.Stat(path + ".bak")
	require.NoError(t, err)
}
