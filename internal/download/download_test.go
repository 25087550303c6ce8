package download

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

func TestDoDownloadsAndVerifiesChecksum(t *testing.T) {
	body := []byte("fake jdk archive bytes")
	sum := fmt.Sprintf("%x", sha256.Sum256(body))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.tar.gz")

	d := New(srv.Client())
	err := d.Do(context.Background(), Request{
		URL:               srv.URL,
		DestPath:          dest,
		Checksum:          sum,
		ChecksumAlgorithm: "sha256",
		TotalTimeout:      5 * time.Second,
		MaxRetries:        2,
		Progress:          StyleOff,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestDoReturnsChecksumMismatchWithoutRetrying(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("some bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.tar.gz")

	d := New(srv.Client())
	err := d.Do(context.Background(), Request{
		URL:               srv.URL,
		DestPath:          dest,
		Checksum:          "0000000000000000000000000000000000000000000000000000000000000000",
		ChecksumAlgorithm: "sha256",
		TotalTimeout:      5 * time.Second,
		MaxRetries:        3,
		Progress:          StyleOff,
	})
	require.Error(t, err)
	require.True(t, kopierr.Is(err, kopierr.ChecksumMismatch))
	require.Equal(t, 1, hits)
}

func TestDoRetriesOn5xxThenSucceeds(t *testing.T) {
	body := []byte("retried bytes")
	sum := fmt.Sprintf("%x", sha256.Sum256(body))

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.tar.gz")

	d := New(srv.Client())
	err := d.Do(context.Background(), Request{
		URL:               srv.URL,
		DestPath:          dest,
		Checksum:          sum,
		ChecksumAlgorithm: "sha256",
		TotalTimeout:      5 * time.Second,
		MaxRetries:        5,
		Progress:          StyleOff,
	})
	require.NoError(t, err)
	require.Equal(t, 3, hits)
}
