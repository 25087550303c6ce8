package metadata

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/version"
)

// fakeSource is an in-memory providers.Source used to drive orchestration
// scenarios without real network or disk sources.
type fakeSource struct {
	kind     providers.Kind
	calls    int32
	err      error
	packages []model.Package
}

func (f *fakeSource) Kind() providers.Kind { return f.kind }

func (f *fakeSource) ListDistributions(ctx context.Context) ([]string, error) {
	return []string{"temurin"}, f.err
}

func (f *fakeSource) ListPackages(ctx context.Context, filter providers.Filter) ([]model.Package, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.packages, nil
}

func (f *fakeSource) FetchDetails(ctx context.Context, pkg model.Package) (model.Package, error) {
	return pkg, nil
}

type retryableErr struct{ error }

func (e *retryableErr) Retryable() bool { return true }
func (e *retryableErr) Unwrap() error   { return e.error }

func testLayout() storage.Layout {
	fs := afero.NewMemMapFs()
	return storage.NewLayout(fs, "/home/.kopi", "/home/.kopi/jdks", "/home/.kopi/cache", "/home/.kopi/shims", "/home/.kopi/tmp")
}

func samplePackage() model.Package {
	jv, _ := version.Parse("21.0.2+13")
	return model.Package{
		Distribution: "temurin",
		JavaVersion:  jv,
		Architecture: "x64",
		PackageType:  model.JDK,
		ArchiveType:  model.TarGz,
		DownloadURL:  "https://example.test/temurin-21.tar.gz",
		Complete:     true,
	}
}

func TestListPackagesFallsBackOnRetryableError(t *testing.T) {
	failing := &fakeSource{kind: providers.KindAPI, err: &retryableErr{error: context.DeadlineExceeded}}
	working := &fakeSource{kind: providers.KindLocal, packages: []model.Package{samplePackage()}}

	p := New(testLayout(), time.Hour, 100, false, failing, working)
	out, err := p.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.EqualValues(t, 1, failing.calls)
	require.EqualValues(t, 1, working.calls)
}

func TestListPackagesDoesNotFallBackOnDefiniteAbsence(t *testing.T) {
	failing := &fakeSource{kind: providers.KindAPI, err: kopierr.New(kopierr.InvalidInput, "no such distribution")}
	working := &fakeSource{kind: providers.KindLocal, packages: []model.Package{samplePackage()}}

	p := New(testLayout(), time.Hour, 100, false, failing, working)
	_, err := p.ListPackages(context.Background(), providers.Filter{Distribution: "bogus"})
	require.Error(t, err)
	require.EqualValues(t, 0, working.calls)
}

func TestListPackagesCachesOnDisk(t *testing.T) {
	src := &fakeSource{kind: providers.KindLocal, packages: []model.Package{samplePackage()}}
	layout := testLayout()

	p1 := New(layout, time.Hour, 100, false, src)
	_, err := p1.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
	require.NoError(t, err)
	require.EqualValues(t, 1, src.calls)

	// A fresh Provider sharing the same on-disk layout should hit the
	// disk cache without calling the source again.
	p2 := New(layout, time.Hour, 100, false, src)
	out, err := p2.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.EqualValues(t, 1, src.calls)
}

func TestListPackagesSingleFlightDeduplicatesInProcessCalls(t *testing.T) {
	src := &fakeSource{kind: providers.KindLocal, packages: []model.Package{samplePackage()}}
	p := New(testLayout(), time.Hour, 100, false, src)

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			_, _ = p.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	require.EqualValues(t, 1, src.calls)
}

func TestOfflineModeSkipsAPISource(t *testing.T) {
	api := &fakeSource{kind: providers.KindAPI, packages: []model.Package{samplePackage()}}
	local := &fakeSource{kind: providers.KindLocal, packages: []model.Package{samplePackage()}}

	p := New(testLayout(), time.Hour, 100, true, api, local)
	_, err := p.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
	require.NoError(t, err)
	require.EqualValues(t, 0, api.calls)
	require.EqualValues(t, 1, local.calls)
}

func TestOfflineModeReturnsOfflineUnavailableWhenNothingCanServe(t *testing.T) {
	api := &fakeSource{kind: providers.KindAPI, err: &retryableErr{error: context.DeadlineExceeded}}
	p := New(testLayout(), time.Hour, 100, true, api)
	_, err := p.ListPackages(context.Background(), providers.Filter{Distribution: "temurin"})
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.OfflineUnavailable))
}

func TestCacheEvictionKeepsCacheWithinBudget(t *testing.T) {
	layout := testLayout()
	src := &fakeSource{kind: providers.KindLocal}
	p := New(layout, time.Hour, 1, false, src) // 1MB budget

	tick := time.Unix(1700000000, 0)
	p.Clock = func() time.Time { return tick }

	big := make([]model.Package, 0, 4000)
	for i := 0; i < 4000; i++ {
		big = append(big, samplePackage())
	}

	for i := 0; i < 3; i++ {
		src.packages = big
		filter := providers.Filter{Distribution: "temurin", Architecture: string(rune('a' + i))}
		p.writeCache(context.Background(), "local", filterHash(filter), filter, big)
		tick = tick.Add(time.Minute)
	}

	entries, err := afero.ReadDir(layout.FS, layout.CacheDir("local"))
	require.NoError(t, err)
	var total int64
	for _, e := range entries {
		total += e.Size()
	}
	require.LessOrEqual(t, total, int64(1024*1024))
}

func TestListDistributionsDeduplicatesAcrossSources(t *testing.T) {
	a := &fakeSource{kind: providers.KindAPI}
	b := &fakeSource{kind: providers.KindLocal}
	p := New(testLayout(), time.Hour, 100, false, a, b)
	out, err := p.ListDistributions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"temurin"}, out)
}
