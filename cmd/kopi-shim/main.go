// Command kopi-shim is installed under <shims_root> once per Java tool
// (java, javac, jar, ...). It resolves the effective JDK for the
// current directory and execs the real tool binary with JAVA_HOME set,
// per spec §4.2. Unlike cmd/kopi, this entry point only wires the
// resolver and storage on its hot path (spec §1's "few milliseconds"
// latency budget) — the metadata provider and install orchestrator are
// built lazily, only when a JDK turns out to be missing.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/install"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/metadata"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/providers/api"
	"github.com/kopi-lang/kopi/internal/providers/httpmirror"
	"github.com/kopi-lang/kopi/internal/providers/local"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/shim"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/toolchain"
)

func main() {
	home, err := kopiHome()
	if err != nil {
		fail(err)
	}
	userHome, _ := os.UserHomeDir()
	cfg, err := config.Load(filepath.Join(home, "config.toml"), userHome)
	if err != nil {
		fail(err)
	}

	fs := afero.NewOsFs()
	layout := storage.NewLayout(fs, home,
		resolveOr(cfg.JdksRoot, home, "jdks"), resolveOr(cfg.CacheRoot, home, "cache"),
		resolveOr(cfg.ShimsRoot, home, "shims"), resolveOr(cfg.TmpRoot, home, "tmp"))

	exeSuffix := ""
	if runtime.GOOS == "windows" {
		exeSuffix = ".exe"
	}
	tool := shim.ToolName(os.Args[0])

	autoInstall := &lazyInstaller{layout: layout, cfg: cfg}
	plan, err := shim.Build(layout, cfg, tool, exeSuffix, os.Args[1:], mustGetwd(), os.Getenv, autoInstall, shim.DefaultPrompt)
	if err != nil {
		fail(err)
	}
	if err := shim.Dispatch(plan, os.Args[0]); err != nil {
		fail(err)
	}
}

// lazyInstaller defers building a full install.Orchestrator (and its
// metadata.Provider) until a JDK is actually found missing, keeping the
// common "already installed" path free of network-provider setup cost.
type lazyInstaller struct {
	layout storage.Layout
	cfg    config.Config
}

func (l *lazyInstaller) InstallForShim(resolved resolve.Resolved) error {
	probe := platform.Current()
	sources := buildSources(l.cfg, l.layout.FS)
	provider := metadata.New(l.layout, time.Duration(l.cfg.Metadata.TTLSeconds)*time.Second, l.cfg.Metadata.MaxCacheMB, false, sources...)
	orch := &install.Orchestrator{
		Layout:   l.layout,
		Provider: provider,
		Config:   l.cfg,
		Probe:    probe,
		Toolchain: toolchain.Writer{
			GradleEnabled: l.cfg.Toolchain.Gradle.Enabled,
			MavenEnabled:  l.cfg.Toolchain.Maven.Enabled,
		},
		Client: &http.Client{Timeout: time.Duration(l.cfg.Download.TotalTimeoutSeconds) * time.Second},
	}
	return orch.InstallForShim(resolved)
}

func buildSources(cfg config.Config, fs afero.Fs) []providers.Source {
	var out []providers.Source
	totalTimeout := time.Duration(cfg.Download.TotalTimeoutSeconds) * time.Second
	for _, ms := range cfg.Metadata.Sources {
		if !ms.Enabled {
			continue
		}
		switch ms.Kind {
		case config.SourceAPI:
			baseURL := ms.BaseURLOrPath
			if baseURL == "" {
				baseURL = "https://api.adoptium.net"
			}
			out = append(out, api.New(baseURL, cfg.Download.Retries, totalTimeout))
		case config.SourceHTTP:
			if ms.BaseURLOrPath == "" {
				continue
			}
			out = append(out, httpmirror.New(ms.BaseURLOrPath, totalTimeout))
		case config.SourceLocal:
			if ms.BaseURLOrPath == "" {
				continue
			}
			out = append(out, local.New(fs, ms.BaseURLOrPath))
		}
	}
	return out
}

func kopiHome() (string, error) {
	if v := os.Getenv("KOPI_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kopi"), nil
}

func resolveOr(configured, home, leaf string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(home, leaf)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "kopi-shim: "+err.Error())
	if kerr, ok := err.(*kopierr.Error); ok {
		if kerr.Hint != "" {
			fmt.Fprintln(os.Stderr, "hint: "+kerr.Hint)
		}
		os.Exit(kerr.ExitCode())
	}
	os.Exit(1)
}
