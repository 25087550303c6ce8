// Package structure implements Kopi's post-extraction JDK root detector
// (spec §4.6): given an extraction directory, find the subdirectory that
// is a valid JAVA_HOME and classify its on-disk shape as Direct, Bundle,
// or Hybrid. Grounded on AdoptOpenJDK-jlink.online/jlink.go, which
// special-cases "Contents/Home/jmods" for platform == "mac" when
// building jlink's module path; that Contents/Home suffix convention is
// generalized here into the Bundle structure type detected for any
// macOS-shaped archive, not just jlink inputs.
package structure

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/kopi-lang/kopi/internal/kopierr"
	"github.com/kopi-lang/kopi/internal/model"
)

// Result is the structure detector's output: StructureType classifies
// the layout, and JavaHomeSuffix (spec §4.6's java_home_suffix) is the
// slash-separated path, relative to the extraction root, of the
// directory containing bin/java ("" when that is the root itself).
type Result struct {
	StructureType model.StructureType
	JavaHomeSuffix string
}

// exeSuffix is a seam so tests exercise the Windows-shaped check
// without building on Windows.
var exeSuffix = func() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}()

// Detect classifies root (an extraction directory already on disk)
// according to spec §4.6, using goos to select the macOS-specific rules
// vs. the simpler non-macOS rule.
func Detect(goos, root string) (Result, error) {
	if goos != "mac" {
		return detectDirect(root)
	}
	return detectMac(root)
}

// detectDirect implements the non-macOS rule: structure is always
// Direct; jdk_root is the first subdirectory inside root, or root
// itself if it is already a valid JAVA_HOME.
func detectDirect(root string) (Result, error) {
	if hasJava(root) {
		return Result{StructureType: model.Direct, JavaHomeSuffix: ""}, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{}, kopierr.Wrap(kopierr.IoError, err, "reading extraction root")
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(root, e.Name())
		if hasJava(child) {
			return Result{StructureType: model.Direct, JavaHomeSuffix: e.Name()}, nil
		}
	}
	// Fall through to the depth-4 walk used by the macOS path too, for
	// archives that nest a level deeper than a single top directory.
	if suffix, ok := walkForJava(root, 4); ok {
		return Result{StructureType: model.Direct, JavaHomeSuffix: suffix}, nil
	}
	return Result{}, kopierr.Newf(kopierr.InvalidJdkStructure, "no bin/java%s found under extraction root", exeSuffix)
}

// detectMac implements spec §4.6 steps 1-6 for macOS archives.
func detectMac(root string) (Result, error) {
	if res, ok := detectMacAt(root); ok {
		return res, nil
	}
	if suffix, ok := walkForJava(root, 4); ok {
		return Result{StructureType: model.Direct, JavaHomeSuffix: suffix}, nil
	}
	return Result{}, kopierr.New(kopierr.InvalidJdkStructure, "no valid JDK root found under extraction directory")
}

// detectMacAt applies steps 1-4 at dir, returning a Result relative to
// the original extraction root (detectMacAtPrefix's prefix threads the child path back
// up through step 4's recursion).
func detectMacAt(dir string) (Result, bool) {
	return detectMacAtPrefix(dir, "")
}

func detectMacAtPrefix(dir, prefix string) (Result, bool) {
	// Step 1: root/bin/java.
	if hasJava(dir) {
		return Result{StructureType: model.Direct, JavaHomeSuffix: prefix}, true
	}
	// Step 2: root/Contents/Home/bin/java.
	bundleDir := filepath.Join(dir, "Contents", "Home")
	if hasJava(bundleDir) {
		return Result{StructureType: model.Bundle, JavaHomeSuffix: joinSuffix(prefix, "Contents/Home")}, true
	}
	// Step 3: root/bin is a symlink and some child has Contents/Home/bin/java.
	binPath := filepath.Join(dir, "bin")
	if fi, err := os.Lstat(binPath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				candidate := filepath.Join(dir, e.Name(), "Contents", "Home")
				if hasJava(candidate) {
					return Result{StructureType: model.Hybrid, JavaHomeSuffix: prefix}, true
				}
			}
		}
	}
	// Step 4: recurse into immediate child directories.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		childPrefix := joinSuffix(prefix, e.Name())
		if res, ok := detectMacAtPrefix(filepath.Join(dir, e.Name()), childPrefix); ok {
			return res, true
		}
	}
	return Result{}, false
}

func joinSuffix(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "/" + segment
}

// hasJava reports whether dir/bin/java[.exe] exists.
func hasJava(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "bin", "java"+exeSuffix))
	return err == nil && !info.IsDir()
}

// walkForJava implements spec §4.6 step 5: walk up to maxDepth levels
// searching for bin/java, taking its grandparent as the root.
func walkForJava(root string, maxDepth int) (string, bool) {
	var found string
	var depth int
	var walk func(dir, prefix string, level int) bool
	walk = func(dir, prefix string, level int) bool {
		if level > maxDepth {
			return false
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.IsDir() && e.Name() == "bin" {
				if hasJava(dir) {
					found = prefix
					depth = level
					return true
				}
			}
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if walk(filepath.Join(dir, e.Name()), joinSuffix(prefix, e.Name()), level+1) {
				return true
			}
		}
		return false
	}
	if walk(root, "", 0) {
		_ = depth
		return found, true
	}
	return "", false
}
