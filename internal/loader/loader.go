// Package loader resolves import paths to modules: builtins first, then
// script files on the search path, then native shared libraries declared
// by a package manifest.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tliron/commonlog"

	"rowan/internal/compiler"
	"rowan/internal/errors"
	"rowan/internal/gc"
	"rowan/internal/lexer"
	"rowan/internal/modules"
	"rowan/internal/parser"
	"rowan/internal/value"
	"rowan/internal/vm"
)

var log = commonlog.GetLogger("rowan.loader")

// Loader resolves logical module names for one VM.
type Loader struct {
	g         *gc.GC
	vm        *vm.VM
	scriptDir string
	paths     []string
	loading   map[string]bool
	libs      map[string]uintptr
}

// New builds a loader rooted at the directory of the running script and
// installs it on the VM. ROWAN_PATH entries extend the search path.
func New(g *gc.GC, machine *vm.VM, scriptDir string) *Loader {
	l := &Loader{
		g:         g,
		vm:        machine,
		scriptDir: scriptDir,
		paths:     searchPaths(scriptDir),
		loading:   make(map[string]bool),
		libs:      make(map[string]uintptr),
	}
	machine.SetModuleLoader(l.Load)
	return l
}

// searchPaths builds the resolution order: the script's directory, its
// modules/, the nearest lib/ directory found walking up from the script's
// directory, ROWAN_PATH entries, the user
// module directory, and system directories.
func searchPaths(scriptDir string) []string {
	var paths []string
	if scriptDir == "" {
		scriptDir = "."
	}
	paths = append(paths, scriptDir, filepath.Join(scriptDir, "modules"))

	dir, err := filepath.Abs(scriptDir)
	if err == nil {
		for {
			lib := filepath.Join(dir, "lib")
			if info, err := os.Stat(lib); err == nil && info.IsDir() {
				paths = append(paths, lib)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if env := os.Getenv("ROWAN_PATH"); env != "" {
		for _, p := range strings.Split(env, string(os.PathListSeparator)) {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".rowan", "modules"))
	}

	paths = append(paths, "/usr/local/lib/rowan", "/usr/lib/rowan")
	return paths
}

// Load resolves name and returns its module. Builtins win over the
// filesystem. The VM caches successful loads, so a failed load leaves no
// entry and a later import retries.
func (l *Loader) Load(name string) (value.Value, error) {
	if mod, ok := modules.Builtin(l.g, name); ok {
		log.Debugf("resolved %q as a builtin", name)
		return mod, nil
	}

	if l.loading[name] {
		return value.Nil(), errors.NewImportError(
			fmt.Sprintf("Cyclic import of module %q.", name), "", 0)
	}
	l.loading[name] = true
	defer delete(l.loading, name)

	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, base := range l.paths {
		if p := filepath.Join(base, rel+".rn"); fileExists(p) {
			log.Debugf("resolved %q to script %s", name, p)
			return l.loadScript(name, p)
		}
		if p := filepath.Join(base, rel, "__init.rn"); fileExists(p) {
			log.Debugf("resolved %q to package init %s", name, p)
			return l.loadScript(name, p)
		}
		if p, ok := l.nativeCandidate(base, rel); ok {
			log.Debugf("resolved %q to native library %s", name, p)
			return l.loadNative(name, p)
		}
	}

	return value.Nil(), errors.NewImportError(
		fmt.Sprintf("Module %q not found.", name), "", 0)
}

// nativeCandidate checks for <base>/<parent>/lib/<leaf>.<ext> where the
// package manifest at <base>/<parent>/pkg.json lists <leaf> as native.
func (l *Loader) nativeCandidate(base, rel string) (string, bool) {
	parent := filepath.Dir(rel)
	leaf := filepath.Base(rel)
	pkgDir := filepath.Join(base, parent)

	manifest, err := readManifest(filepath.Join(pkgDir, "pkg.json"))
	if err != nil || !manifest.IsNative(leaf) {
		return "", false
	}
	p := filepath.Join(pkgDir, "lib", leaf+libExt())
	if !fileExists(p) {
		return "", false
	}
	return p, true
}

func libExt() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// loadScript compiles and executes a module file. EXPORT statements in
// the file populate the fresh module's export table.
func (l *Loader) loadScript(name, path string) (value.Value, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return value.Nil(), errors.NewImportError(
			fmt.Sprintf("Cannot read module %q: %v", name, err), path, 0)
	}

	sc := lexer.NewScanner(string(source), path)
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		return value.Nil(), sc.Errors[0]
	}
	p := parser.NewParserWithSource(tokens, string(source), path)
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		return value.Nil(), p.Errors[0]
	}
	c := compiler.New(l.g, path)
	fn, err := c.Compile(stmts)
	if err != nil {
		return value.Nil(), err
	}

	mod := l.g.NewModule(name, path)
	l.g.PushTempRoot(mod)
	defer l.g.PopTempRoot()

	if _, err := l.vm.Interpret(fn, mod); err != nil {
		return value.Nil(), err
	}
	mod.Loaded = true
	return value.Object(mod), nil
}
