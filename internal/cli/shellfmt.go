package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// shellKind identifies one of the shells `env`/`use` can emit syntax
// for, per spec §6's "--shell autodetect bash/zsh/fish/powershell".
type shellKind string

const (
	shellBash       shellKind = "bash"
	shellZsh        shellKind = "zsh"
	shellFish       shellKind = "fish"
	shellPowerShell shellKind = "powershell"
)

// detectShell inspects SHELL (POSIX) or falls back to a platform
// default, the same environment-driven detection Jenvy's InitializeJVMEnvironment
// used for registry vs. PATH decisions, generalized here to shell dialect.
func detectShell() shellKind {
	if shell := os.Getenv("SHELL"); shell != "" {
		switch filepath.Base(shell) {
		case "zsh":
			return shellZsh
		case "fish":
			return shellFish
		case "bash":
			return shellBash
		}
	}
	if os.Getenv("PSModulePath") != "" {
		return shellPowerShell
	}
	return shellBash
}

func parseShellKind(s string) (shellKind, error) {
	switch shellKind(strings.ToLower(s)) {
	case shellBash, shellZsh, shellFish, shellPowerShell:
		return shellKind(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("cli: unknown shell %q (want bash, zsh, fish, or powershell)", s)
	}
}

// exportStatements renders the JAVA_HOME/PATH assignment for one shell
// dialect, per spec §6's "emits shell-specific export statements".
func exportStatements(shell shellKind, javaHome string) []string {
	binDir := filepath.Join(javaHome, "bin")
	switch shell {
	case shellFish:
		return []string{
			fmt.Sprintf("set -gx JAVA_HOME %q", javaHome),
			fmt.Sprintf("set -gx PATH %q $PATH", binDir),
		}
	case shellPowerShell:
		return []string{
			fmt.Sprintf("$env:JAVA_HOME = %q", javaHome),
			fmt.Sprintf("$env:PATH = %q + [IO.Path]::PathSeparator + $env:PATH", binDir),
		}
	default: // bash, zsh
		return []string{
			fmt.Sprintf("export JAVA_HOME=%q", javaHome),
			fmt.Sprintf("export PATH=%q:\"$PATH\"", binDir),
		}
	}
}
