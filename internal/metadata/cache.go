package metadata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/storage"
)

// defaultCacheLockTimeout bounds writeCache's wait for cache-write when
// Provider.LockTimeout is unset.
const defaultCacheLockTimeout = 30 * time.Second

// diskRecord is the on-disk cache envelope: the filter that produced it
// (for eviction diagnostics), a fetch timestamp for TTL checks, and the
// packages themselves.
type diskRecord struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Filter    providers.Filter `json:"filter"`
	Packages  []model.Package  `json:"packages"`
}

func (p *Provider) cachePath(sourceName, key string) string {
	return filepath.Join(p.Layout.CacheDir(sourceName), key+".json")
}

// readCache returns a cached result if present and within TTL. A
// corrupted cache file is deleted and treated as a miss; nothing is
// logged.
func (p *Provider) readCache(sourceName, key string) ([]model.Package, bool) {
	path := p.cachePath(sourceName, key)
	data, err := afero.ReadFile(p.Layout.FS, path)
	if err != nil {
		return nil, false
	}
	var rec diskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = p.Layout.FS.Remove(path)
		return nil, false
	}
	if p.now().Sub(rec.FetchedAt) > p.TTL {
		return nil, false
	}
	return rec.Packages, true
}

// writeCache persists a result and runs eviction if the source's cache
// directory now exceeds MaxMB, per spec §4.3's eviction rule: delete
// oldest entries first until usage is back under 75% of the budget.
// The write (and the eviction it triggers) happens under the
// cache-write lock per spec §4.3/§5, so concurrent kopi processes never
// race on the same cache directory.
func (p *Provider) writeCache(ctx context.Context, sourceName, key string, filter providers.Filter, packages []model.Package) {
	timeout := p.LockTimeout
	if timeout <= 0 {
		timeout = defaultCacheLockTimeout
	}
	lock, err := p.Layout.Acquire(ctx, storage.CacheWriteLockKey, timeout)
	if err != nil {
		return
	}
	defer lock.Release()

	rec := diskRecord{FetchedAt: p.now(), Filter: filter, Packages: packages}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	dir := p.Layout.CacheDir(sourceName)
	if err := p.Layout.FS.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := p.cachePath(sourceName, key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(p.Layout.FS, tmp, data, 0o644); err != nil {
		return
	}
	if err := p.Layout.FS.Rename(tmp, path); err != nil {
		return
	}
	p.evict(dir)
}

// now is a seam so tests can stamp cache entries deterministically;
// production callers get wall-clock time.
func (p *Provider) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

// evict deletes the oldest cache files in dir until total size is under
// 75% of p.MaxMB, matching spec §4.3's eviction target.
func (p *Provider) evict(dir string) {
	if p.MaxMB <= 0 {
		return
	}
	entries, err := afero.ReadDir(p.Layout.FS, dir)
	if err != nil {
		return
	}
	files := make([]cacheFile, 0, len(entries))
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, cacheFile{path: filepath.Join(dir, e.Name()), size: e.Size(), modTime: e.ModTime()})
		total += e.Size()
	}
	limit := int64(p.MaxMB) * 1024 * 1024
	if total <= limit {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	target := limit * 3 / 4
	for _, f := range files {
		if total <= target {
			break
		}
		if err := p.Layout.FS.Remove(f.path); err != nil {
			continue
		}
		total -= f.size
	}
}
