// Package model holds the shared data types used across Kopi's core:
// Package (an available, not-yet-installed artifact), InstalledJdk, and
// VersionRequest, per spec §3.
package model

import (
	"time"

	"github.com/kopi-lang/kopi/internal/version"
)

// PackageType distinguishes full JDKs from JRE-only artifacts.
type PackageType string

const (
	JDK PackageType = "jdk"
	JRE PackageType = "jre"
)

// ArchiveType identifies the archive container format.
type ArchiveType string

const (
	TarGz ArchiveType = "tar.gz"
	Zip   ArchiveType = "zip"
)

// ReleaseStatus distinguishes general-availability from early-access builds.
type ReleaseStatus string

const (
	GA ReleaseStatus = "ga"
	EA ReleaseStatus = "ea"
)

// StructureType categorizes the on-disk layout of an extracted JDK.
type StructureType string

const (
	Direct StructureType = "Direct"
	Bundle StructureType = "Bundle"
	Hybrid StructureType = "Hybrid"
)

// Package is an available, not-yet-installed JDK/JRE artifact as
// reported by a metadata source.
type Package struct {
	Distribution        string
	JavaVersion         version.Version
	DistributionVersion version.Version
	Architecture        string
	OperatingSystem     string
	LibcFlavor          string
	PackageType         PackageType
	ArchiveType         ArchiveType
	JavaFXBundled       bool
	DownloadURL         string
	Checksum            string
	ChecksumAlgorithm   string
	Size                int64
	ReleaseStatus       ReleaseStatus
	LTS                 bool
	Complete            bool
}

// ID returns a stable identity string for deduplication, matching the
// tuple spec §4.3 names: (distribution, java_version, arch, os, libc,
// package_type, archive_type, javafx).
func (p Package) ID() string {
	return p.Distribution + "|" + p.JavaVersion.String() + "|" + p.Architecture + "|" +
		p.OperatingSystem + "|" + p.LibcFlavor + "|" + string(p.PackageType) + "|" +
		string(p.ArchiveType) + "|" + boolToken(p.JavaFXBundled)
}

func boolToken(b bool) string {
	if b {
		return "fx"
	}
	return "nofx"
}

// InstalledJdk describes a JDK already installed on disk.
type InstalledJdk struct {
	Distribution        string
	JavaVersion         version.Version
	DistributionVersion version.Version
	Architecture        string
	LibcFlavor          string
	PackageType         PackageType
	InstallPath         string
	StructureType       StructureType
	JavaHomeSuffix      string
	InstalledAt         time.Time
	OriginalPackageID   string
}

// DirName is the canonical directory name for this installation per
// spec §4.7: "<distribution>-<java_version>-<arch>[-<libc>]", where
// libc is included only on Linux.
func (j InstalledJdk) DirName(goos string) string {
	name := j.Distribution + "-" + j.JavaVersion.String() + "-" + j.Architecture
	if goos == "linux" && j.LibcFlavor != "" {
		name += "-" + j.LibcFlavor
	}
	return name
}

// VersionRequest is a parsed request for a JDK, from user input or a
// project version file.
type VersionRequest struct {
	Distribution string
	Pattern      version.Version
	PackageType  PackageType
	HasType      bool
}

// String renders the request back to "dist@pattern" or "pattern" form.
func (r VersionRequest) String() string {
	if r.Distribution == "" {
		return r.Pattern.String()
	}
	return r.Distribution + "@" + r.Pattern.String()
}
