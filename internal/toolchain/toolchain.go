// Package toolchain writes and cleans up the Gradle and Maven toolchain
// registration files a JDK install integrates with (spec §4.9). Grounded
// on Jenvy's internal/utils/config.go, which already saves a small
// config file via a tmp-then-rename sequence; generalized here to the
// two third-party file formats spec §4.9 names, with a backup-on-first-
// modification step the teacher's single-file save didn't need.
package toolchain

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
)

// vendorAliases maps Kopi distribution ids to the vendor string Maven's
// toolchains.xml plugin expects, per spec §4.9.
var vendorAliases = map[string]string{
	"temurin":    "Eclipse Adoptium",
	"corretto":   "Amazon Corretto",
	"zulu":       "Azul Zulu",
	"liberica":   "BellSoft Liberica",
	"graalvm":    "GraalVM Community",
	"sapmachine": "SAP SE",
	"microsoft":  "Microsoft",
}

func vendorAlias(distribution string) string {
	if v, ok := vendorAliases[distribution]; ok {
		return v
	}
	return distribution
}

// Writer integrates/removes one installed JDK's registration in Gradle's
// gradle.properties and Maven's toolchains.xml.
type Writer struct {
	GradleEnabled bool
	MavenEnabled  bool
	GradleHome    string // defaults to ~/.gradle
	MavenHome     string // defaults to ~/.m2
}

// Integrate registers jdk with every enabled toolchain, per stage 12 of
// spec §4.4: best-effort, failures are collected and returned but never
// fatal to the install as a whole.
func (w Writer) Integrate(jdk model.InstalledJdk) []error {
	var errs []error
	if w.GradleEnabled {
		if err := w.writeGradleProperties(gradlePath(w.GradleHome), jdk.InstallPath, addPath); err != nil {
			errs = append(errs, fmt.Errorf("toolchain: gradle: %w", err))
		}
	}
	if w.MavenEnabled {
		if err := w.writeMavenToolchains(mavenPath(w.MavenHome), jdk, addToolchain); err != nil {
			errs = append(errs, fmt.Errorf("toolchain: maven: %w", err))
		}
	}
	return errs
}

// Remove deregisters jdk, called by `uninstall` per spec §6.
func (w Writer) Remove(jdk model.InstalledJdk) []error {
	var errs []error
	if w.GradleEnabled {
		if err := w.writeGradleProperties(gradlePath(w.GradleHome), jdk.InstallPath, removePath); err != nil {
			errs = append(errs, fmt.Errorf("toolchain: gradle: %w", err))
		}
	}
	if w.MavenEnabled {
		if err := w.writeMavenToolchains(mavenPath(w.MavenHome), jdk, removeToolchain); err != nil {
			errs = append(errs, fmt.Errorf("toolchain: maven: %w", err))
		}
	}
	return errs
}

func gradlePath(home string) string {
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".gradle", "gradle.properties")
}

func mavenPath(home string) string {
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".m2", "toolchains.xml")
}

const gradleInstallationsKey = "org.gradle.java.installations.paths"

type pathOp func(existing []string, path string) []string

func addPath(existing []string, path string) []string {
	for _, p := range existing {
		if p == path {
			return existing
		}
	}
	return append(existing, path)
}

func removePath(existing []string, path string) []string {
	out := make([]string, 0, len(existing))
	for _, p := range existing {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}

// writeGradleProperties merges path into gradle.properties's
// org.gradle.java.installations.paths key, preserving every other line
// verbatim, per spec §4.9's "merging with any existing list and
// deduplicating" rule.
func (w Writer) writeGradleProperties(path, jdkPath string, op pathOp) error {
	lines, existing, keyLine, err := readPropertiesFile(path)
	if err != nil {
		return err
	}

	updated := op(existing, jdkPath)
	sort.Strings(updated)
	newLine := gradleInstallationsKey + "=" + strings.Join(updated, ",")

	var out []string
	replaced := false
	for i, line := range lines {
		if i == keyLine {
			if len(updated) > 0 {
				out = append(out, newLine)
			}
			replaced = true
			continue
		}
		out = append(out, line)
	}
	if !replaced && len(updated) > 0 {
		out = append(out, newLine)
	}

	return backupAndWrite(path, []byte(strings.Join(out, "\n")+"\n"))
}

// readPropertiesFile returns the file's raw lines, the current
// installations list (empty if absent), and the index of the key's
// line (-1 if absent).
func readPropertiesFile(path string) (lines, existing []string, keyLine int, err error) {
	keyLine = -1
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, -1, nil
		}
		return nil, nil, -1, kopierr.Wrap(kopierr.IoError, err, "reading "+path)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	idx := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, gradleInstallationsKey+"=") {
			value := strings.TrimPrefix(line, gradleInstallationsKey+"=")
			for _, p := range strings.Split(value, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					existing = append(existing, p)
				}
			}
			keyLine = idx
		}
		lines = append(lines, line)
		idx++
	}
	return lines, existing, keyLine, nil
}

// mavenToolchains mirrors the subset of toolchains.xml schema Kopi
// writes and reads: one <toolchain> per registered JDK.
type mavenToolchains struct {
	XMLName    xml.Name         `xml:"toolchains"`
	Toolchains []mavenToolchain `xml:"toolchain"`
}

type mavenToolchain struct {
	Type          string              `xml:"type"`
	Provides      mavenProvides       `xml:"provides"`
	Configuration mavenConfiguration  `xml:"configuration"`
}

type mavenProvides struct {
	Version string `xml:"version"`
	Vendor  string `xml:"vendor"`
}

type mavenConfiguration struct {
	JavaHome string `xml:"jdkHome"`
}

type toolchainOp func(existing []mavenToolchain, jdk model.InstalledJdk) []mavenToolchain

func addToolchain(existing []mavenToolchain, jdk model.InstalledJdk) []mavenToolchain {
	home := filepath.Join(jdk.InstallPath, jdk.JavaHomeSuffix)
	for i, t := range existing {
		if t.Configuration.JavaHome == home {
			existing[i] = newMavenToolchain(jdk, home)
			return existing
		}
	}
	return append(existing, newMavenToolchain(jdk, home))
}

func removeToolchain(existing []mavenToolchain, jdk model.InstalledJdk) []mavenToolchain {
	home := filepath.Join(jdk.InstallPath, jdk.JavaHomeSuffix)
	out := make([]mavenToolchain, 0, len(existing))
	for _, t := range existing {
		if t.Configuration.JavaHome != home {
			out = append(out, t)
		}
	}
	return out
}

func newMavenToolchain(jdk model.InstalledJdk, home string) mavenToolchain {
	return mavenToolchain{
		Type: "jdk",
		Provides: mavenProvides{
			Version: jdk.JavaVersion.String(),
			Vendor:  vendorAlias(jdk.Distribution),
		},
		Configuration: mavenConfiguration{JavaHome: home},
	}
}

func (w Writer) writeMavenToolchains(path string, jdk model.InstalledJdk, op toolchainOp) error {
	var doc mavenToolchains
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := xml.Unmarshal(data, &doc); err != nil {
			return kopierr.Wrap(kopierr.IoError, err, "parsing "+path)
		}
	case os.IsNotExist(err):
		// Created fresh, per spec §4.9.
	default:
		return kopierr.Wrap(kopierr.IoError, err, "reading "+path)
	}

	doc.Toolchains = op(doc.Toolchains, jdk)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return kopierr.Wrap(kopierr.IoError, err, "encoding "+path)
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')

	return backupAndWrite(path, out)
}

// backupAndWrite copies the existing file to path+".bak" the first time
// it is modified (a .bak that already exists is left alone), then
// performs a tmp+rename write, per spec §4.9's transactional + backup
// requirement.
func backupAndWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kopierr.Wrap(kopierr.IoError, err, "creating "+filepath.Dir(path))
	}

	backupPath := path + ".bak"
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		if original, err := os.ReadFile(path); err == nil {
			_ = os.WriteFile(backupPath, original, 0o644)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return kopierr.Wrap(kopierr.IoError, err, "writing "+tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return kopierr.Wrap(kopierr.IoError, err, "renaming "+tmp)
	}
	return nil
}
