// Package config loads and represents Kopi's Config value (spec §3).
// The CLI layer is responsible for locating config.toml; this package
// turns TOML text into a defaulted Config (root-path defaults follow
// KOPI_HOME when it is set). Decoded values are not validated.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SourceKind identifies a metadata source's capability class (spec §4.3).
type SourceKind string

const (
	SourceAPI   SourceKind = "api"
	SourceHTTP  SourceKind = "http"
	SourceLocal SourceKind = "local"
)

// AutoPromptPolicy controls shim behavior on a missing JDK (spec §4.2).
type AutoPromptPolicy string

const (
	PromptAlways      AutoPromptPolicy = "always"
	PromptNever       AutoPromptPolicy = "never"
	PromptInteractive AutoPromptPolicy = "interactive"
)

// ProgressStyle controls how download progress is rendered (spec §3).
type ProgressStyle string

const (
	ProgressBar     ProgressStyle = "bar"
	ProgressSpinner ProgressStyle = "spinner"
	ProgressSimple  ProgressStyle = "simple"
	ProgressOff     ProgressStyle = "off"
)

// MetadataSource is one entry of Config.Metadata.Sources.
type MetadataSource struct {
	Kind        SourceKind `toml:"kind"`
	BaseURLOrPath string   `toml:"base_url_or_path"`
	Enabled     bool       `toml:"enabled"`
}

type metadataConfig struct {
	Sources    []MetadataSource `toml:"sources"`
	TTLSeconds int              `toml:"ttl_seconds"`
	MaxCacheMB int              `toml:"max_cache_mb"`
}

type downloadConfig struct {
	ConnectTimeoutSeconds int `toml:"connect_timeout"`
	TotalTimeoutSeconds   int `toml:"total_timeout"`
	Retries               int `toml:"retries"`
}

type installConfig struct {
	AutoPrompt        AutoPromptPolicy `toml:"auto_prompt"`
	LockTimeoutSeconds int             `toml:"lock_timeout"`
}

type progressConfig struct {
	Style ProgressStyle `toml:"style"`
}

type toolchainToolConfig struct {
	Enabled bool `toml:"enabled"`
}

type toolchainConfig struct {
	Gradle toolchainToolConfig `toml:"gradle"`
	Maven  toolchainToolConfig `toml:"maven"`
}

// Config is Kopi's fully-resolved configuration (spec §3).
type Config struct {
	DefaultDistribution string `toml:"default_distribution"`
	JdksRoot            string `toml:"jdks_root"`
	CacheRoot           string `toml:"cache_root"`
	ShimsRoot           string `toml:"shims_root"`
	TmpRoot             string `toml:"tmp_root"`

	Metadata  metadataConfig  `toml:"metadata"`
	Download  downloadConfig  `toml:"download"`
	Install   installConfig   `toml:"install"`
	Progress  progressConfig  `toml:"progress"`
	Toolchain toolchainConfig `toml:"toolchain"`
}

// Default returns the Config defaults from spec §3, with root paths under
// KOPI_HOME when it is set and under home/.kopi otherwise.
func Default(home string) Config {
	kopiHome := filepath.Join(home, ".kopi")
	if v := os.Getenv("KOPI_HOME"); v != "" {
		kopiHome = v
	}
	return Config{
		DefaultDistribution: "temurin",
		JdksRoot:            filepath.Join(kopiHome, "jdks"),
		CacheRoot:           filepath.Join(kopiHome, "cache"),
		ShimsRoot:           filepath.Join(kopiHome, "shims"),
		TmpRoot:             filepath.Join(kopiHome, "tmp"),
		Metadata: metadataConfig{
			Sources: []MetadataSource{
				{Kind: SourceAPI, Enabled: true},
				{Kind: SourceHTTP, Enabled: true},
				{Kind: SourceLocal, Enabled: true},
			},
			TTLSeconds: 3600,
			MaxCacheMB: 100,
		},
		Download: downloadConfig{
			ConnectTimeoutSeconds: 30,
			TotalTimeoutSeconds:   600,
			Retries:               3,
		},
		Install: installConfig{
			AutoPrompt:         PromptInteractive,
			LockTimeoutSeconds: 600,
		},
		Progress: progressConfig{Style: ProgressBar},
		Toolchain: toolchainConfig{
			Gradle: toolchainToolConfig{Enabled: true},
			Maven:  toolchainToolConfig{Enabled: true},
		},
	}
}

// Load reads config.toml at path, decoding over the defaults so any
// key the file omits keeps its documented default — the same
// decode-over-defaults shape BurntSushi/toml users rely on for partial
// config files.
func Load(path, home string) (Config, error) {
	cfg := Default(home)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating its parent directory if
// needed, used by `kopi default`/`kopi setup` to persist config changes.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
