// Package httpmirror implements the "http" metadata source: a static
// mirror serving an index.json plus per-distribution files, always
// returning complete records (checksum/size included), per spec §4.3.
package httpmirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/version"
)

// indexEntry is one row of the mirror's index.json.
type indexEntry struct {
	Distribution string `json:"distribution"`
	File         string `json:"file"`
}

// mirrorPackage is the per-distribution file's record shape: the same
// fields as model.Package, serialized directly (a static mirror is
// Kopi's own wire format, unlike the api source which mirrors a
// third-party vendor schema).
type mirrorPackage struct {
	Distribution        string `json:"distribution"`
	JavaVersion          string `json:"java_version"`
	DistributionVersion  string `json:"distribution_version"`
	Architecture         string `json:"architecture"`
	OperatingSystem      string `json:"operating_system"`
	LibcFlavor           string `json:"libc_flavor"`
	PackageType          string `json:"package_type"`
	ArchiveType          string `json:"archive_type"`
	JavaFXBundled        bool   `json:"javafx_bundled"`
	DownloadURL          string `json:"download_url"`
	Checksum             string `json:"checksum"`
	ChecksumAlgorithm    string `json:"checksum_algorithm"`
	Size                 int64  `json:"size"`
	ReleaseStatus        string `json:"release_status"`
	LTS                  bool   `json:"lts"`
}

// Source queries a static HTTP mirror over a plain net/http.Client — no
// retry wrapper, since the provider-level fallback in internal/metadata
// already covers a whole mirror being unreachable, and mirrors are
// expected idempotent (no partial-result subtlety to retry around).
type Source struct {
	BaseURL string
	client  *http.Client
}

func New(baseURL string, totalTimeout time.Duration) *Source {
	return &Source{BaseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: totalTimeout}}
}

func (s *Source) Kind() providers.Kind { return providers.KindHTTP }

func (s *Source) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &retryableErr{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("httpmirror: %s not found", path)
	}
	if resp.StatusCode/100 == 5 {
		return &retryableErr{fmt.Errorf("httpmirror: status %d for %s", resp.StatusCode, path)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpmirror: unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Source) ListDistributions(ctx context.Context) ([]string, error) {
	var index []indexEntry
	if err := s.get(ctx, "/index.json", &index); err != nil {
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
	var index []indexEntry
	if err := s.get(ctx, "/index.json", &index); err != nil {
		return nil, err
	}

	var out []model.Package
	for _, e := range index {
		if filter.Distribution != "" && !strings.EqualFold(e.Distribution, filter.Distribution) {
			continue
		}
		var records []mirrorPackage
		if err := s.get(ctx, "/"+e.File, &records); err != nil {
			return nil, err
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

func toPackage(r mirrorPackage) (model.Package, error) {
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

// FetchDetails is a no-op: the http mirror already serves complete
// records, per spec §4.3.
func (s *Source) FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error) {
	return pkg, nil
}

type retryableErr struct{ error }

func (e *retryableErr) Retryable() bool { return true }
func (e *retryableErr) Unwrap() error   { return e.error }
