package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/version"
)

// SidecarSchemaVersion gates sidecar compatibility per spec §4.4 stage 11.
const SidecarSchemaVersion = 1

// Sidecar is the JSON file written next to every installed JDK
// directory, per spec §4.4 stage 11 and §6.
type Sidecar struct {
	Distribution        string `json:"distribution"`
	JavaVersion         string `json:"java_version"`
	DistributionVersion string `json:"distribution_version"`
	Architecture        string `json:"architecture"`
	OperatingSystem     string `json:"operating_system"`
	LibcFlavor          string `json:"libc_flavor"`
	PackageType         string `json:"package_type"`
	StructureType       string `json:"structure_type"`
	JavaHomeSuffix      string `json:"java_home_suffix"`
	InstalledAt         string `json:"installed_at"`
	OriginalPackageID   string `json:"original_package_id"`
	MetadataVersion     int    `json:"metadata_version"`
}

// ToInstalledJdk converts a parsed Sidecar plus its install path into
// the runtime InstalledJdk model.
func (s Sidecar) ToInstalledJdk(installPath string) (model.InstalledJdk, error) {
	jv, err := version.Parse(s.JavaVersion)
	if err != nil {
		return model.InstalledJdk{}, fmt.Errorf("storage: sidecar java_version: %w", err)
	}
	var dv version.Version
	if s.DistributionVersion != "" {
		dv, err = version.Parse(s.DistributionVersion)
		if err != nil {
			return model.InstalledJdk{}, fmt.Errorf("storage: sidecar distribution_version: %w", err)
		}
	}
	installedAt, err := time.Parse(time.RFC3339, s.InstalledAt)
	if err != nil {
		installedAt = time.Time{}
	}
	return model.InstalledJdk{
		Distribution:        s.Distribution,
		JavaVersion:         jv,
		DistributionVersion: dv,
		Architecture:        s.Architecture,
		LibcFlavor:          s.LibcFlavor,
		PackageType:         model.PackageType(s.PackageType),
		InstallPath:         installPath,
		StructureType:       model.StructureType(s.StructureType),
		JavaHomeSuffix:      s.JavaHomeSuffix,
		InstalledAt:         installedAt,
		OriginalPackageID:   s.OriginalPackageID,
	}, nil
}

// FromInstalledJdk builds a Sidecar from a model.InstalledJdk.
func FromInstalledJdk(j model.InstalledJdk) Sidecar {
	distVersion := ""
	if len(j.DistributionVersion.Components) > 0 {
		distVersion = j.DistributionVersion.String()
	}
	return Sidecar{
		Distribution:        j.Distribution,
		JavaVersion:         j.JavaVersion.String(),
		DistributionVersion: distVersion,
		Architecture:        j.Architecture,
		LibcFlavor:          j.LibcFlavor,
		PackageType:         string(j.PackageType),
		StructureType:       string(j.StructureType),
		JavaHomeSuffix:      j.JavaHomeSuffix,
		InstalledAt:         j.InstalledAt.UTC().Format(time.RFC3339),
		OriginalPackageID:   j.OriginalPackageID,
		MetadataVersion:     SidecarSchemaVersion,
	}
}

// marshalCanonical renders v as sorted-keys, indentless JSON. Go's
// encoding/json emits struct fields in declaration order but map keys
// sorted lexically, so v is marshalled, decoded into a map (numbers kept
// verbatim) and re-encoded; serialize+deserialize round trips bytewise.
func marshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteSidecar persists s at path using tmp+rename, per spec §4.7.
func (l Layout) WriteSidecar(path string, s Sidecar) error {
	data, err := marshalCanonical(s)
	if err != nil {
		return err
	}
	return l.atomicWrite(path, data)
}

// ReadSidecar reads and parses the sidecar at path.
func (l Layout) ReadSidecar(path string) (Sidecar, error) {
	data, err := readFile(l.FS, path)
	if err != nil {
		return Sidecar{}, err
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return Sidecar{}, fmt.Errorf("storage: parsing sidecar %s: %w", path, err)
	}
	return s, nil
}

// atomicWrite writes data to a temp file in the same directory as path,
// then renames it into place, so readers never observe a partial file.
func (l Layout) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := l.FS.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(l.FS, tmp, data); err != nil {
		return err
	}
	return l.FS.Rename(tmp, path)
}
