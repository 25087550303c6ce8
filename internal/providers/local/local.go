// Package local implements the "local" metadata source: a bundled
// directory shipped with the installer, using the same index.json +
// per-distribution-file format as the http mirror (spec §4.3), read from
// disk instead of over the network. Only an unpacked directory is read;
// a tarball bundle is not opened.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/version"
)

type indexEntry struct {
	Distribution string `json:"distribution"`
	File         string `json:"file"`
}

type localPackage struct {
	Distribution        string `json:"distribution"`
	JavaVersion         string `json:"java_version"`
	DistributionVersion string `json:"distribution_version"`
	Architecture        string `json:"architecture"`
	OperatingSystem     string `json:"operating_system"`
	LibcFlavor          string `json:"libc_flavor"`
	PackageType         string `json:"package_type"`
	ArchiveType         string `json:"archive_type"`
	JavaFXBundled       bool   `json:"javafx_bundled"`
	DownloadURL         string `json:"download_url"`
	Checksum            string `json:"checksum"`
	ChecksumAlgorithm   string `json:"checksum_algorithm"`
	Size                int64  `json:"size"`
	ReleaseStatus       string `json:"release_status"`
	LTS                 bool   `json:"lts"`
}

// Source reads a bundled metadata directory from disk, through the
// same afero.Fs abstraction the rest of the core uses for
// testability. Its DownloadURL entries are handed to the downloader
// unchanged, which fetches them over HTTP(S); file:// URLs are not
// served.
type Source struct {
	FS   afero.Fs
	Root string
}

func New(fs afero.Fs, root string) *Source { return &Source{FS: fs, Root: root} }

func (s *Source) Kind() providers.Kind { return providers.KindLocal }

func (s *Source) index() ([]indexEntry, error) {
	data, err := afero.ReadFile(s.FS, filepath.Join(s.Root, "index.json"))
	if err != nil {
		return nil, fmt.Errorf("local: reading index.json: %w", err)
	}
	var index []indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("local: parsing index.json: %w", err)
	}
	return index, nil
}

func (s *Source) ListDistributions(ctx context.Context) ([]string, error) {
	index, err := s.index()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, e := range index {
		if !seen[e.Distribution] {
			seen[e.Distribution] = true
			names = append(names, e.Distribution)
		}
	}
	return names, nil
}

func (s *Source) ListPackages(ctx context.Context, filter providers.Filter) ([]model.Package, error) {
	index, err := s.index()
	if err != nil {
		return nil, err
	}
	var out []model.Package
	for _, e := range index {
		if filter.Distribution != "" && !strings.EqualFold(e.Distribution, filter.Distribution) {
			continue
		}
		data, err := afero.ReadFile(s.FS, filepath.Join(s.Root, e.File))
		if err != nil {
			return nil, fmt.Errorf("local: reading %s: %w", e.File, err)
		}
		var records []localPackage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("local: parsing %s: %w", e.File, err)
		}
		for _, r := range records {
			pkg, err := toPackage(r)
			if err != nil {
				continue
			}
			out = append(out, pkg)
		}
	}
	return out, nil
}

func toPackage(r localPackage) (model.Package, error) {
	jv, err := version.Parse(r.JavaVersion)
	if err != nil {
		return model.Package{}, err
	}
	var dv version.Version
	if r.DistributionVersion != "" {
		dv, _ = version.Parse(r.DistributionVersion)
	}
	return model.Package{
		Distribution:        r.Distribution,
		JavaVersion:         jv,
		DistributionVersion: dv,
		Architecture:        r.Architecture,
		OperatingSystem:     r.OperatingSystem,
		LibcFlavor:          r.LibcFlavor,
		PackageType:         model.PackageType(r.PackageType),
		ArchiveType:         model.ArchiveType(r.ArchiveType),
		JavaFXBundled:       r.JavaFXBundled,
		DownloadURL:         r.DownloadURL,
		Checksum:            r.Checksum,
		ChecksumAlgorithm:   r.ChecksumAlgorithm,
		Size:                r.Size,
		ReleaseStatus:       model.ReleaseStatus(r.ReleaseStatus),
		LTS:                 r.LTS,
		Complete:            true,
	}, nil
}

// FetchDetails is a no-op: bundled local records are always complete.
func (s *Source) FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error) {
	return pkg, nil
}
