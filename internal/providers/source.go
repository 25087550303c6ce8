// Package providers defines the Source capability set (spec §4.3, §9)
// implemented by the three concrete metadata sources: api, httpmirror,
// and local.
package providers

import (
	"context"

	"github.com/kopi-lang/kopi/internal/model"
)

// Filter enumerates the query dimensions list_packages accepts (spec §4.3).
type Filter struct {
	Distribution    string
	Pattern         string // textual version pattern, source-specific matching
	OperatingSystem string
	Architecture    string
	LibcFlavor      string
	PackageType     model.PackageType
	HasPackageType  bool
	JavaFXBundled   bool
	HasJavaFX       bool
	LatestPerMajor  bool
}

// Kind identifies which of the three source shapes implements Source.
type Kind string

const (
	KindAPI   Kind = "api"
	KindHTTP  Kind = "http"
	KindLocal Kind = "local"
)

// Retryable reports whether an error from a Source call should trigger
// fallback to the next configured source, per spec §4.3's fallback
// policy: network errors, 5xx, and timeouts are retryable; a definite
// "no such distribution" answer is not.
type Retryable interface {
	Retryable() bool
}

// Source is the capability set every metadata source implements.
type Source interface {
	Kind() Kind
	ListDistributions(ctx context.Context) ([]string, error)
	ListPackages(ctx context.Context, filter Filter) ([]model.Package, error)
	// FetchDetails completes a package's detail fields (checksum, size)
	// when its Complete bit is false. Sources that always return
	// complete records (http, local) may return the input unchanged.
	FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error)
}
