// Package shim implements the dispatch logic run by cmd/kopi-shim: pick
// the tool name from argv[0], resolve the effective JDK, build its
// JAVA_HOME, and replace the current process with the target binary.
// Grounded on Jenvy's cmd/use.go (JAVA_HOME/PATH construction) and
// cmd/fix-path.go (the teacher's only process-replacement-adjacent
// code, a Windows-only `reg query` shellout); generalized here into the
// real exec/spawn split spec §4.2 and §9 call for, implemented by the
// OS-gated dispatch_unix.go/dispatch_windows.go files.
package shim

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"runtime"

	"github.com/kopi-lang/kopi/internal/config"
	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
	"github.com/kopi-lang/kopi/internal/platform"
	"github.com/kopi-lang/kopi/internal/resolve"
	"github.com/kopi-lang/kopi/internal/storage"
	"github.com/kopi-lang/kopi/internal/structure"
)

// ToolName derives the tool to invoke from argv[0]'s file stem, e.g.
// "/home/.kopi/shims/java" -> "java", "java.exe" -> "java".
func ToolName(argv0 string) string {
	base := filepath.Base(argv0)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Plan is the fully-resolved dispatch decision: which binary to run,
// with which environment, forwarding which arguments.
type Plan struct {
	TargetPath string
	Env        []string
	Args       []string
}

// AutoInstaller runs the Installation Orchestrator synchronously for a
// missing version; internal/install implements it. Declared here as an
// interface so shim does not import install and its metadata/download
// dependencies; cmd/kopi-shim supplies the implementation.
type AutoInstaller interface {
	InstallForShim(req resolve.Resolved) error
}

// Prompter asks the user a y/N question when install.auto_prompt is
// "interactive" and stdin is a TTY.
type Prompter func(question string) bool

// Build resolves the effective JDK for tool and constructs its dispatch
// Plan, per spec §4.2 steps 2-5. args is argv[1:] to forward unchanged.
func Build(layout storage.Layout, cfg config.Config, tool, exeSuffix string, args []string, cwd string, getenv func(string) string, autoInstall AutoInstaller, prompt Prompter) (Plan, error) {
	resolved, err := resolve.Resolve(layout, cwd, getenv)
	if err != nil {
		return Plan{}, err
	}

	jdk, err := resolve.BestInstalled(layout, resolved.Request)
	if err != nil {
		if !kopierr.Is(err, kopierr.JdkNotInstalled) {
			return Plan{}, err
		}
		if installErr := handleMissing(cfg, resolved, autoInstall, prompt); installErr != nil {
			return Plan{}, installErr
		}
		jdk, err = resolve.BestInstalled(layout, resolved.Request)
		if err != nil {
			return Plan{}, err
		}
	}

	javaHome, suffix, err := JavaHomeFor(jdk)
	if err != nil {
		return Plan{}, err
	}
	if suffix != jdk.JavaHomeSuffix {
		updateSidecarSuffixBestEffort(layout, jdk, suffix)
	}

	targetPath := filepath.Join(javaHome, "bin", tool+exeSuffix)
	if info, err := os.Stat(targetPath); err != nil || info.IsDir() {
		return Plan{}, kopierr.Newf(kopierr.ToolNotFound, "tool %q not found in JDK at %s", tool, javaHome).
			WithField("tool", tool).WithField("jdk", jdk.Distribution+"@"+jdk.JavaVersion.String())
	}

	env := buildEnv(javaHome)
	return Plan{TargetPath: targetPath, Env: env, Args: args}, nil
}

// JavaHomeFor returns the JDK's JAVA_HOME and the suffix used to reach
// it, preferring the sidecar's recorded suffix and falling back to the
// structure detector when it is unknown, per spec §4.2 step 3. Exported
// so `kopi use`/`kopi env` can compute the same JAVA_HOME the shim would
// dispatch into without duplicating the fallback logic.
func JavaHomeFor(jdk model.InstalledJdk) (string, string, error) {
	if jdk.JavaHomeSuffix != "" || jdk.StructureType == model.Direct {
		return filepath.Join(jdk.InstallPath, jdk.JavaHomeSuffix), jdk.JavaHomeSuffix, nil
	}
	goos := platform.NormalizeOS(runtime.GOOS)
	suffix, err := detectSuffix(jdk.InstallPath, goos)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(jdk.InstallPath, suffix), suffix, nil
}

// updateSidecarSuffixBestEffort rewrites the sidecar with a freshly
// detected java_home_suffix; failure is silent per spec §4.2 step 3.
func updateSidecarSuffixBestEffort(layout storage.Layout, jdk model.InstalledJdk, suffix string) {
	dirName := filepath.Base(jdk.InstallPath)
	sc, err := layout.ReadSidecar(layout.SidecarPath(dirName))
	if err != nil {
		return
	}
	sc.JavaHomeSuffix = suffix
	_ = layout.WriteSidecar(layout.SidecarPath(dirName), sc)
}

func handleMissing(cfg config.Config, resolved resolve.Resolved, autoInstall AutoInstaller, prompt Prompter) error {
	switch cfg.Install.AutoPrompt {
	case config.PromptNever:
		return kopierr.Newf(kopierr.JdkNotInstalled, "no installed JDK matches %s", resolved.Request.String()).
			WithHint("run `kopi install " + resolved.Request.String() + "`")
	case config.PromptAlways:
		if autoInstall == nil {
			return kopierr.New(kopierr.JdkNotInstalled, "auto-install is enabled but no installer is wired")
		}
		return autoInstall.InstallForShim(resolved)
	default: // interactive
		if prompt == nil || !prompt(fmt.Sprintf("JDK %s is not installed. Install it now?", resolved.Request.String())) {
			return kopierr.Newf(kopierr.JdkNotInstalled, "no installed JDK matches %s", resolved.Request.String())
		}
		if autoInstall == nil {
			return kopierr.New(kopierr.JdkNotInstalled, "auto-install accepted but no installer is wired")
		}
		return autoInstall.InstallForShim(resolved)
	}
}

func buildEnv(javaHome string) []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+2)
	pathKey := "PATH"
	var existingPath string
	for _, kv := range env {
		if strings.HasPrefix(kv, "JAVA_HOME=") {
			continue
		}
		if strings.HasPrefix(kv, pathKey+"=") {
			existingPath = kv[len(pathKey)+1:]
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "JAVA_HOME="+javaHome)
	newPath := filepath.Join(javaHome, "bin")
	if existingPath != "" {
		newPath += string(os.PathListSeparator) + existingPath
	}
	out = append(out, pathKey+"="+newPath)
	return out
}

// DefaultPrompt reads a y/N answer from stdin, used when attached to a
// TTY under install.auto_prompt = interactive.
func DefaultPrompt(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// detectSuffix runs the structure detector on the fly when the sidecar
// doesn't carry a java_home_suffix, per spec §4.2 step 3.
func detectSuffix(installPath, goos string) (string, error) {
	res, err := structure.Detect(goos, installPath)
	if err != nil {
		return "", err
	}
	return res.JavaHomeSuffix, nil
}
