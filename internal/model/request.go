package model

import (
	"fmt"
	"strings"

	"github.com/kopi-lang/kopi/internal/version"
)

// ParseVersionRequest parses "dist@pattern" or "pattern" text, the
// format used by .kopi-version files, KOPI_JAVA_VERSION, and the global
// default file (spec §3, §4.1).
func ParseVersionRequest(s string) (VersionRequest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionRequest{}, fmt.Errorf("model: empty version request")
	}

	var dist, pattern string
	if idx := strings.IndexByte(s, '@'); idx >= 0 {
		dist = strings.ToLower(strings.TrimSpace(s[:idx]))
		pattern = strings.TrimSpace(s[idx+1:])
		if dist == "" {
			return VersionRequest{}, fmt.Errorf("model: empty distribution before '@' in %q", s)
		}
	} else {
		pattern = s
	}

	v, err := version.Parse(pattern)
	if err != nil {
		return VersionRequest{}, fmt.Errorf("model: %w", err)
	}

	return VersionRequest{Distribution: dist, Pattern: v}, nil
}

// MatchesInstalled reports whether an installed JDK satisfies r, per
// spec §4.1's candidate-matching rule: distribution must match if
// specified; the pattern is matched prefix-wise against
// distribution_version when it has 4+ components, against java_version
// when it carries a +build suffix, and against java_version otherwise;
// package type must match if specified.
func (r VersionRequest) MatchesInstalled(j InstalledJdk) bool {
	if r.Distribution != "" && !strings.EqualFold(r.Distribution, j.Distribution) {
		return false
	}
	if r.HasType && r.PackageType != j.PackageType {
		return false
	}
	return r.matchesVersions(j.JavaVersion, j.DistributionVersion)
}

// MatchesPackage reports whether an available package satisfies r,
// applying the identical matching rule used for installed JDKs.
func (r VersionRequest) MatchesPackage(p Package) bool {
	if r.Distribution != "" && !strings.EqualFold(r.Distribution, p.Distribution) {
		return false
	}
	if r.HasType && r.PackageType != p.PackageType {
		return false
	}
	return r.matchesVersions(p.JavaVersion, p.DistributionVersion)
}

func (r VersionRequest) matchesVersions(javaVersion, distVersion version.Version) bool {
	switch {
	case r.Pattern.HasBuild():
		return r.Pattern.Matches(javaVersion)
	case len(r.Pattern.Components) >= 4:
		return r.Pattern.Matches(distVersion)
	default:
		return r.Pattern.Matches(javaVersion)
	}
}

// BestInstalled selects the highest-ranked installed JDK matching r,
// per spec §4.1: highest version wins (GA before EA is not tracked on
// InstalledJdk, so ties break on most-recent install timestamp).
func BestInstalled(candidates []InstalledJdk, r VersionRequest) (InstalledJdk, bool) {
	var best InstalledJdk
	found := false
	for _, c := range candidates {
		if !r.MatchesInstalled(c) {
			continue
		}
		if !found || rankInstalled(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func rankInstalled(a, b InstalledJdk) bool {
	if cmp := version.Compare(a.JavaVersion, b.JavaVersion); cmp != 0 {
		return cmp > 0
	}
	return a.InstalledAt.After(b.InstalledAt)
}

// BestPackage selects the highest-ranked available package matching r,
// per spec §4.4 stage 1: if a default distribution is given and none was
// requested, packages of that distribution win first; then highest
// version, then GA before EA.
func BestPackage(candidates []Package, r VersionRequest, defaultDistribution string) (Package, bool) {
	var best Package
	found := false
	for _, c := range candidates {
		if !r.MatchesPackage(c) {
			continue
		}
		if !found || rankPackage(c, best, r.Distribution, defaultDistribution) {
			best = c
			found = true
		}
	}
	return best, found
}

func rankPackage(a, b Package, requestedDist, defaultDist string) bool {
	if requestedDist == "" && defaultDist != "" {
		aDefault := strings.EqualFold(a.Distribution, defaultDist)
		bDefault := strings.EqualFold(b.Distribution, defaultDist)
		if aDefault != bDefault {
			return aDefault
		}
	}
	if cmp := version.Compare(a.JavaVersion, b.JavaVersion); cmp != 0 {
		return cmp > 0
	}
	if a.ReleaseStatus != b.ReleaseStatus {
		return a.ReleaseStatus == GA
	}
	return false
}
