// Package resolve implements Kopi's version resolver (spec §4.1): the
// layered lookup from the environment, project version files, and the
// global default, plus the installed-JDK matching rule it feeds into.
// Grounded on Jenvy's cmd/use.go (locates an installed JDK by a version
// string typed on the command line) and internal/utils/config.go (reads
// a persisted default from disk); generalized here into the directory-
// walk-to-.git layered resolution spec §4.1 requires.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/storage"
)

// Source identifies where a resolved VersionRequest came from, surfaced
// by `kopi current` per spec §6.
type Source string

const (
	SourceEnv     Source = "env"
	SourceProject Source = "project"
	SourceGlobal  Source = "global"
)

// Resolved pairs a VersionRequest with its provenance and the file it
// came from, when applicable.
type Resolved struct {
	Request model.VersionRequest
	Source  Source
	Path    string
}

// EnvVar is the environment variable checked before any file, per spec
// §4.1 step 1.
const EnvVar = "KOPI_JAVA_VERSION"

// Resolve walks from cwd upward applying spec §4.1's precedence order:
// env var, .kopi-version, .java-version, global default, else
// NoVersionConfigured.
func Resolve(layout storage.Layout, cwd string, getenv func(string) string) (Resolved, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvVar)); v != "" {
		req, err := model.ParseVersionRequest(v)
		if err != nil {
			return Resolved{}, kopierr.Wrap(kopierr.InvalidVersionFile, err, "parsing "+EnvVar)
		}
		return Resolved{Request: req, Source: SourceEnv}, nil
	}

	dir, err := filepath.Abs(cwd)
	if err != nil {
		return Resolved{}, kopierr.Wrap(kopierr.IoError, err, "resolving working directory")
	}

	for {
		path, content, ok, err := readProjectFile(dir)
		if err != nil {
			return Resolved{}, err
		}
		if ok {
			req, err := parseProjectFile(path, content)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Request: req, Source: SourceProject, Path: path}, nil
		}
		if hasGit(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	globalPath := layout.GlobalVersionPath()
	if data, err := afero.ReadFile(layout.FS, globalPath); err == nil {
		line := strings.TrimSpace(string(data))
		if line != "" {
			req, err := model.ParseVersionRequest(line)
			if err != nil {
				return Resolved{}, kopierr.Wrap(kopierr.InvalidVersionFile, err, "parsing global default version")
			}
			return Resolved{Request: req, Source: SourceGlobal, Path: globalPath}, nil
		}
	} else if !os.IsNotExist(err) {
		return Resolved{}, kopierr.Wrap(kopierr.IoError, err, "reading global default version")
	}

	return Resolved{}, kopierr.New(kopierr.NoVersionConfigured, "no JDK version configured for this directory").
		WithHint("run `kopi local <version>` or `kopi global <version>` to configure one")
}

// readProjectFile looks for .kopi-version then .java-version in dir,
// per spec §4.1's "when both exist, .kopi-version wins" rule. A missing
// file is not an error — the caller tries the next candidate or walks
// up — but an existing, unreadable file (e.g. permission denied) is,
// per spec §4.1: "missing project files are not errors; unreadable
// ones are."
func readProjectFile(dir string) (path, content string, ok bool, err error) {
	for _, name := range []string{".kopi-version", ".java-version"} {
		p := filepath.Join(dir, name)
		data, readErr := os.ReadFile(p)
		if readErr == nil {
			return p, string(data), true, nil
		}
		if !os.IsNotExist(readErr) {
			return "", "", false, kopierr.Wrap(kopierr.IoError, readErr, "reading "+p)
		}
	}
	return "", "", false, nil
}

func parseProjectFile(path, content string) (model.VersionRequest, error) {
	line := strings.TrimSpace(content)
	if line == "" {
		return model.VersionRequest{}, kopierr.Newf(kopierr.InvalidVersionFile, "%s is empty", path)
	}
	if strings.Contains(line, "\n") {
		return model.VersionRequest{}, kopierr.Newf(kopierr.InvalidVersionFile, "%s must be a single line", path)
	}
	if filepath.Base(path) == ".java-version" && strings.Contains(line, "@") {
		return model.VersionRequest{}, kopierr.Newf(kopierr.InvalidVersionFile, "%s must be a plain version pattern, not dist@pattern", path)
	}
	req, err := model.ParseVersionRequest(line)
	if err != nil {
		return model.VersionRequest{}, kopierr.Wrap(kopierr.InvalidVersionFile, err, "parsing "+path)
	}
	return req, nil
}

func hasGit(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// BestInstalled enumerates installed JDKs under layout and selects the
// best match for req, per spec §4.1's ranking rule.
func BestInstalled(layout storage.Layout, req model.VersionRequest) (model.InstalledJdk, error) {
	names, err := layout.ListInstalled()
	if err != nil {
		return model.InstalledJdk{}, kopierr.Wrap(kopierr.IoError, err, "listing installed JDKs")
	}
	var candidates []model.InstalledJdk
	for _, name := range names {
		sc, err := layout.ReadSidecar(layout.SidecarPath(name))
		if err != nil {
			continue
		}
		jdk, err := sc.ToInstalledJdk(layout.InstallDir(name))
		if err != nil {
			continue
		}
		candidates = append(candidates, jdk)
	}
	best, ok := model.BestInstalled(candidates, req)
	if !ok {
		return model.InstalledJdk{}, kopierr.Newf(kopierr.JdkNotInstalled, "no installed JDK matches %s", req.String()).
			WithHint("run `kopi install " + req.String() + "`")
	}
	return best, nil
}
