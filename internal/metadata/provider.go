// Package metadata orchestrates Kopi's metadata sources: ordered
// fallback, a per-key single-flight in-process cache, and a TTL-based
// on-disk cache with eviction (spec §4.3). Grounded on Jenvy's
// RemoteList command (internal/cmd/remote_list.go), which already
// aggregates several providers into one listing; generalized here into
// the ordered-fallback + cache model spec §4.3 requires.
package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/storage"
)

// namedSource pairs a Source with the kind-keyed name used for cache
// directory placement, since config lets several sources share a Kind.
type namedSource struct {
	source providers.Source
	name   string
}

// Provider orchestrates metadata sources with fallback, caching, and
// offline mode.
type Provider struct {
	Layout  storage.Layout
	TTL     time.Duration
	MaxMB   int
	Offline bool
	// Clock overrides time.Now for cache timestamping in tests; nil uses
	// wall-clock time.
	Clock func() time.Time
	// LockTimeout bounds how long writeCache waits for the cache-write
	// lock (spec §5); zero means defaultCacheLockTimeout.
	LockTimeout time.Duration

	sources []namedSource

	mu       sync.Mutex
	inflight map[string]*sync.WaitGroup
	results  map[string]cacheEntry
}

// New builds a Provider. Sources are tried in the given order, matching
// spec §4.3: "Sources are tried in configured order."
func New(layout storage.Layout, ttl time.Duration, maxMB int, offline bool, sources ...providers.Source) *Provider {
	named := make([]namedSource, 0, len(sources))
	counts := map[providers.Kind]int{}
	for _, s := range sources {
		counts[s.Kind()]++
		name := string(s.Kind())
		if counts[s.Kind()] > 1 {
			name = fmt.Sprintf("%s-%d", s.Kind(), counts[s.Kind()])
		}
		named = append(named, namedSource{source: s, name: name})
	}
	return &Provider{
		Layout:   layout,
		TTL:      ttl,
		MaxMB:    maxMB,
		Offline:  offline,
		sources:  named,
		inflight: map[string]*sync.WaitGroup{},
		results:  map[string]cacheEntry{},
	}
}

type cacheEntry struct {
	packages []model.Package
	err      error
}

// filterHash derives the stable cache key for a filter, per spec §4.3:
// "<cache_root>/<source_kind>/<hash_of_filter>.json".
func filterHash(f providers.Filter) string {
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:32]
}

// ListDistributions queries every enabled source in order, deduplicating.
func (p *Provider) ListDistributions(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	var lastErr error
	for _, ns := range p.sources {
		if p.Offline && ns.source.Kind() == providers.KindAPI {
			continue
		}
		names, err := ns.source.ListDistributions(ctx)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return nil, err
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	if out == nil && lastErr != nil {
		return nil, p.offlineAwareError(lastErr)
	}
	sort.Strings(out)
	return out, nil
}

// ListPackages applies the fallback + cache + single-flight policy of
// spec §4.3 for one filter.
func (p *Provider) ListPackages(ctx context.Context, filter providers.Filter) ([]model.Package, error) {
	key := filterHash(filter)

	p.mu.Lock()
	if entry, ok := p.results[key]; ok {
		p.mu.Unlock()
		return entry.packages, entry.err
	}
	if wg, inflight := p.inflight[key]; inflight {
		p.mu.Unlock()
		wg.Wait()
		p.mu.Lock()
		entry := p.results[key]
		p.mu.Unlock()
		return entry.packages, entry.err
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	p.inflight[key] = wg
	p.mu.Unlock()

	packages, err := p.listPackagesUncached(ctx, filter, key)

	p.mu.Lock()
	p.results[key] = cacheEntry{packages: packages, err: err}
	delete(p.inflight, key)
	p.mu.Unlock()
	wg.Done()

	return packages, err
}

func (p *Provider) listPackagesUncached(ctx context.Context, filter providers.Filter, key string) ([]model.Package, error) {
	var lastErr error
	for _, ns := range p.sources {
		if p.Offline && ns.source.Kind() == providers.KindAPI {
			continue
		}

		if cached, ok := p.readCache(ns.name, key); ok {
			return cached, nil
		}

		packages, err := ns.source.ListPackages(ctx, filter)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return nil, err
		}

		deduped := dedupe(packages)
		p.writeCache(ctx, ns.name, key, filter, deduped)
		return deduped, nil
	}
	if lastErr != nil {
		return nil, p.offlineAwareError(lastErr)
	}
	if p.Offline {
		return nil, kopierr.New(kopierr.OfflineUnavailable, "no cached or local source could satisfy this request while offline")
	}
	return nil, nil
}

func (p *Provider) offlineAwareError(cause error) error {
	if p.Offline {
		return kopierr.Wrap(kopierr.OfflineUnavailable, cause, "no source could serve this request under --offline")
	}
	return kopierr.Wrap(kopierr.NetworkFailure, cause, "all configured metadata sources failed")
}

func isRetryable(err error) bool {
	var r providers.Retryable
	for e := err; e != nil; {
		if as, ok := e.(providers.Retryable); ok {
			r = as
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return r != nil && r.Retryable()
}

// dedupe removes duplicate packages by the identity tuple in spec §4.3.
func dedupe(pkgs []model.Package) []model.Package {
	seen := map[string]bool{}
	out := make([]model.Package, 0, len(pkgs))
	for _, p := range pkgs {
		id := p.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	return out
}

// FetchDetails completes one package's detail fields by calling the
// source that produced it. Callers pass the sourceKind they retrieved
// the package from (recorded by the install orchestrator), since a
// Package itself doesn't carry provenance.
func (p *Provider) FetchDetails(ctx context.Context, kind providers.Kind, pkg model.Package) (model.Package, error) {
	for _, ns := range p.sources {
		if ns.source.Kind() == kind {
			return ns.source.FetchDetails(ctx, pkg)
		}
	}
	return pkg, nil
}

// Refresh drops every in-process cache entry, forcing the next
// ListPackages call to re-consult sources (and the on-disk cache's TTL).
func (p *Provider) Refresh() {
	p.mu.Lock()
	p.results = map[string]cacheEntry{}
	p.mu.Unlock()
}
