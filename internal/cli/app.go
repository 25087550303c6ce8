// Package cli implements Kopi's cobra command tree (spec §6). Grounded
// on Jenvy's internal/cmd/*.go command set (download, remote_list, use,
// show_config, reset_config, completion), generalized onto
// github.com/spf13/cobra in place of Jenvy's hand-rolled os.Args switch
// in main.go, and onto the spec's own command surface rather than
// Jenvy's Windows-only JDK manager commands.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/install"
	"github.com/kopi-lang/kopi/internal/metadata"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/providers"
	"github.com/kopi-lang/kopi/internal/providers/api"
	"github.com/kopi-lang/kopi/internal/providers/httpmirror"
	"github.com/kopi-lang/kopi/internal/providers/local"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/toolchain"
)

// app bundles everything a command needs, built once in root's
// PersistentPreRunE and threaded through via the cobra.Command's
// context, the same "build shared state once, commands read it"
// pattern Jenvy's internal/utils/config.go load-once-then-reuse idiom
// follows at a smaller scale.
type app struct {
	Layout       storage.Layout
	Config       config.Config
	Provider     *metadata.Provider
	Probe        platform.Probe
	Orchestrator *install.Orchestrator
	Toolchain    toolchain.Writer
	Log          *zap.Logger
	Out          *Printer

	kopiHome string
	offline  bool
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

// buildApp wires every core package into one app value, using real
// os.* access for KOPI_HOME discovery and config loading (outside any
// afero.Fs tree, like internal/resolve's project-file reads) and an
// afero.NewOsFs() for the Layout itself, per spec §4.7.
func buildApp(offline bool) (*app, error) {
	home, err := kopiHome()
	if err != nil {
		return nil, fmt.Errorf("cli: determining KOPI_HOME: %w", err)
	}

	userHome, _ := os.UserHomeDir()
	cfg, err := config.Load(filepath.Join(home, "config.toml"), userHome)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	layout := storage.NewLayout(fs, home, resolveOr(cfg.JdksRoot, home, "jdks"),
		resolveOr(cfg.CacheRoot, home, "cache"),
		resolveOr(cfg.ShimsRoot, home, "shims"),
		resolveOr(cfg.TmpRoot, home, "tmp"))

	if os.Getenv("KOPI_OFFLINE") == "1" {
		offline = true
	}

	sources := buildSources(cfg, fs)
	provider := metadata.New(layout, time.Duration(cfg.Metadata.TTLSeconds)*time.Second, cfg.Metadata.MaxCacheMB, offline, sources...)

	probe := platform.Current()
	tc := toolchain.Writer{
		GradleEnabled: cfg.Toolchain.Gradle.Enabled,
		MavenEnabled:  cfg.Toolchain.Maven.Enabled,
	}

	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	orch := &install.Orchestrator{
		Layout:    layout,
		Provider:  provider,
		Config:    cfg,
		Probe:     probe,
		Toolchain: tc,
		Client:    &http.Client{Timeout: time.Duration(cfg.Download.TotalTimeoutSeconds) * time.Second},
	}

	return &app{
		Layout:       layout,
		Config:       cfg,
		Provider:     provider,
		Probe:        probe,
		Orchestrator: orch,
		Toolchain:    tc,
		Log:          log,
		Out:          NewPrinter(os.Stdout, os.Stderr),
		kopiHome:     home,
		offline:      offline,
	}, nil
}

// buildSources constructs one providers.Source per enabled
// Config.Metadata.Sources entry, in configured order, per spec §4.3.
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

// kopiHome resolves KOPI_HOME per spec §6, defaulting to ~/.kopi.
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
