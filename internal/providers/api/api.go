// Package api implements the "api" metadata source: a live JSON API in
// the Adoptium/foojay-disco shape, generalized from Jenvy's
// internal/providers/adoptium and internal/providers/azul packages
// (each a thin HTTP-JSON client for one vendor's release feed) into a
// single client driven by Config's base_url_or_path, emitting the
// spec's common model.Package record instead of a vendor-specific
// struct.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/version"
)

// Source queries a live feature-release API. Retries on network error,
// timeout, or 5xx are handled by retryablehttp (grounded:
// sgtest-megarepo/sourcegraph's go.mod dependency on
// github.com/hashicorp/go-retryablehttp) rather than a bare
// *http.Client, matching spec §4.3's "retryable failure" rule.
type Source struct {
	BaseURL string
	client  *retryablehttp.Client
}

// New builds an api.Source against baseURL, with a bounded retry count
// matching Config.Download.Retries and the total request timeout (no
// separate connect timeout is set).
func New(baseURL string, retries int, totalTimeout time.Duration) *Source {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.Logger = nil
	c.HTTPClient = &http.Client{Timeout: totalTimeout}
	return &Source{BaseURL: strings.TrimRight(baseURL, "/"), client: c}
}

func (s *Source) Kind() providers.Kind { return providers.KindAPI }

// discoRelease mirrors the Adoptium/foojay-disco "release" schema, the
// same shape Jenvy's adoptium.go decodes (AdoptiumResponse), generalized
// here with explicit libc/package-type fields the teacher's struct
// didn't need because it only ever targeted Windows x64 JDKs.
type discoRelease struct {
	VersionData struct {
		OpenJDKVersion string `json:"openjdk_version"`
		Semver         string `json:"semver"`
	} `json:"version_data"`
	Binaries []discoBinary `json:"binaries"`
}

type discoBinary struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	CLibType     string `json:"c_lib_type"`
	ImageType    string `json:"image_type"`
	JVMImpl      string `json:"jvm_impl"`
	Project      string `json:"project"`
	Package      struct {
		Link              string `json:"link"`
		Checksum          string `json:"checksum"`
		ChecksumAlgorithm string `json:"checksum_type"`
		Size              int64  `json:"size"`
		Name              string `json:"name"`
	} `json:"package"`
}

func (s *Source) endpoint(filter providers.Filter) string {
	dist := filter.Distribution
	if dist == "" {
		dist = "temurin"
	}
	q := fmt.Sprintf("%s/v1/distributions/%s/releases", s.BaseURL, dist)
	params := []string{}
	if filter.OperatingSystem != "" {
		params = append(params, "os="+filter.OperatingSystem)
	}
	if filter.Architecture != "" {
		params = append(params, "architecture="+filter.Architecture)
	}
	if filter.Pattern != "" {
		params = append(params, "version="+filter.Pattern)
	}
	if len(params) > 0 {
		q += "?" + strings.Join(params, "&")
	}
	return q
}

func (s *Source) ListDistributions(ctx context.Context) ([]string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/v1/distributions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &retryableErr{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 5 {
		return nil, &retryableErr{fmt.Errorf("api: status %d listing distributions", resp.StatusCode)}
	}
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListPackages fetches release metadata. Checksum and size are copied
// from the list response when present; a record is Complete only when
// it carries a checksum, and FetchDetails completes the others.
func (s *Source) ListPackages(ctx context.Context, filter providers.Filter) ([]model.Package, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(filter), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &retryableErr{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Definite absence: spec §4.3 says do NOT fall back on this.
		return nil, fmt.Errorf("api: distribution %q not found", filter.Distribution)
	}
	if resp.StatusCode/100 == 5 {
		return nil, &retryableErr{fmt.Errorf("api: status %d listing packages", resp.StatusCode)}
	}

	var releases []discoRelease
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, err
	}

	dist := filter.Distribution
	if dist == "" {
		dist = "temurin"
	}

	var out []model.Package
	for _, rel := range releases {
		jv, err := version.Parse(normalizeOpenJDKVersion(rel.VersionData.OpenJDKVersion))
		if err != nil {
			continue
		}
		for _, b := range rel.Binaries {
			pkgType := model.JDK
			if strings.EqualFold(b.ImageType, "jre") {
				pkgType = model.JRE
			}
			archiveType := model.TarGz
			if strings.HasSuffix(b.Package.Link, ".zip") {
				archiveType = model.Zip
			}
			out = append(out, model.Package{
				Distribution:      dist,
				JavaVersion:       jv,
				Architecture:      b.Architecture,
				OperatingSystem:   b.OS,
				LibcFlavor:        libcFlavor(b),
				PackageType:       pkgType,
				ArchiveType:       archiveType,
				DownloadURL:       b.Package.Link,
				Checksum:          b.Package.Checksum,
				ChecksumAlgorithm: b.Package.ChecksumAlgorithm,
				Size:              b.Package.Size,
				ReleaseStatus:     model.GA,
				Complete:          b.Package.Checksum != "",
			})
		}
	}
	return out, nil
}

func libcFlavor(b discoBinary) string {
	if b.CLibType != "" {
		return b.CLibType
	}
	switch b.OS {
	case "mac":
		return "libc"
	case "windows":
		return "c_std_lib"
	case "alpine-linux":
		return "musl"
	default:
		return "libc"
	}
}

// normalizeOpenJDKVersion turns a disco-style "21.0.2+13" string into
// the same form Kopi's version.Parse already accepts; kept as a named
// step since some feeds quote build metadata differently (e.g.
// "21.0.2+13.1" for GA patch releases).
func normalizeOpenJDKVersion(s string) string { return strings.TrimSpace(s) }

// FetchDetails re-queries a single package's detail endpoint for
// checksum/size when the list response omitted them.
func (s *Source) FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error) {
	if pkg.Complete {
		return pkg, nil
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pkg.DownloadURL+".meta", nil)
	if err != nil {
		return pkg, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return pkg, &retryableErr{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Detail endpoints are best-effort; keep the incomplete record
		// rather than failing the whole install on a missing .meta file.
		return pkg, nil
	}
	var detail struct {
		Checksum          string `json:"checksum"`
		ChecksumAlgorithm string `json:"checksum_type"`
		Size              int64  `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return pkg, nil
	}
	pkg.Checksum = detail.Checksum
	pkg.ChecksumAlgorithm = detail.ChecksumAlgorithm
	pkg.Size = detail.Size
	pkg.Complete = pkg.Checksum != ""
	return pkg, nil
}

type retryableErr struct{ error }

func (e *retryableErr) Retryable() bool { return true }
func (e *retryableErr) Unwrap() error   { return e.error }
