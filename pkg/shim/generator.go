// Package shim rewrites the symlinks in node_modules/.bin into POSIX shell
// wrappers.
//
// A plain symlink into the package store loses the module search path the
// binary expects: node resolves modules from the binary's real location, and
// in a flat store that location has no view of the packages the binary
// actually depends on. The generated wrapper exports NODE_PATH covering the
// package's private node_modules and execs the original target with the
// interpreter named in its shebang line.
package shim

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/layout"
)

// Generator turns .bin symlinks into wrapper scripts.
type Generator struct {
	storeRoot string
	lookPath  func(string) (string, error)
	logger    *log.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLookPath replaces exec.LookPath for resolving env-style interpreters.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(g *Generator) { g.lookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator for a store rooted at storeRoot below
// node_modules.
func NewGenerator(storeRoot string, opts ...Option) *Generator {
	if storeRoot == "" {
		storeRoot = layout.DefaultStoreRoot
	}
	g := &Generator{storeRoot: storeRoot, lookPath: exec.LookPath, logger: log.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate replaces every symlink in projectDir/node_modules/.bin with a
// wrapper script and returns how many were written. Regular files are taken
// to be wrappers from an earlier run and left alone. A link whose target is
// missing is logged and skipped. An env-style interpreter missing from PATH
// is INTERPRETER_NOT_FOUND.
func (g *Generator) Generate(ctx context.Context, projectDir string) (int, error) {
	modules := filepath.Join(projectDir, layout.ModulesDir)
	binDir := filepath.Join(modules, layout.BinDirName)

	entries, err := os.ReadDir(binDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "read %s", binDir)
	}

	count := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if e.Type()&os.ModeSymlink == 0 {
			continue
		}
		ok, err := g.generateOne(modules, binDir, e.Name())
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (g *Generator) generateOne(modules, binDir, name string) (bool, error) {
	linkPath := filepath.Join(binDir, name)
	linkTarget, err := os.Readlink(linkPath)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "read link %s", linkPath)
	}

	f, err := os.Open(linkPath)
	if err != nil {
		g.logger.Warn("bin target is missing, leaving link", "bin", name, "target", linkTarget)
		return false, nil
	}
	sb, err := ReadShebang(f)
	f.Close()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "read %s", linkTarget)
	}

	s := Shim{
		Name:      name,
		StoreRoot: g.storeRoot,
		Target:    ResolveTarget(g.storeRoot, filepath.ToSlash(linkTarget)),
		Shebang:   sb,
	}
	if sb.Exec == ExecEnv {
		interp, err := g.lookPath(sb.Interpreter)
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeInterpreterNotFound, err,
				"%s: interpreter %q not found in PATH", name, sb.Interpreter)
		}
		s.Interpreter = interp
	}
	root, dir := g.locate(modules, s.Target)
	s.NodePath = ModulePath(root, dir)

	if err := os.Remove(linkPath); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "remove %s", linkPath)
	}
	if err := os.WriteFile(linkPath, []byte(Render(s)), 0o755); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "write shim %s", linkPath)
	}
	if err := os.Chmod(linkPath, 0o755); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "chmod %s", linkPath)
	}
	g.logger.Debug("wrote shim", "bin", name, "exec", sb.Exec, "target", s.Target.unquoted())
	return true, nil
}

// locate finds the package that owns t and returns its root together with
// the directory of t relative to that root. Top-level package links are
// followed one hop into the store. When no owning package can be found the
// returned root is empty.
func (g *Generator) locate(modules string, t Target) (Target, string) {
	switch t.Var {
	case VarStore:
		if root, dir, ok := splitStorePath(t.Rel); ok {
			return root, dir
		}
	case VarModules:
		name, rest, ok := splitPackage(t.Rel)
		if !ok {
			break
		}
		if link, err := os.Readlink(filepath.Join(modules, filepath.FromSlash(name))); err == nil {
			linked := path.Clean(path.Join(path.Dir(name), filepath.ToSlash(link)))
			if inStore, ok := underSegments(linked, g.storeRoot); ok {
				if root, dir, ok := splitStorePath(path.Join(inStore, rest)); ok {
					return root, dir
				}
			}
		}
		return Target{Var: VarModules, Rel: name}, path.Dir(rest)
	}
	return Target{}, ""
}

// splitStorePath splits "<key>/node_modules/<name>/<file...>" into the
// package root and the file's directory below it.
func splitStorePath(rel string) (Target, string, bool) {
	key, after, ok := strings.Cut(rel, "/"+layout.ModulesDir+"/")
	if !ok || strings.Contains(key, "/") {
		return Target{}, "", false
	}
	name, rest, ok := splitPackage(after)
	if !ok {
		return Target{}, "", false
	}
	return Target{Var: VarStore, Rel: path.Join(key, layout.ModulesDir, name)}, path.Dir(rest), true
}

// splitPackage splits "<name>/<file...>" where name may be scoped.
func splitPackage(rel string) (name, rest string, ok bool) {
	segs := strings.Split(rel, "/")
	n := 1
	if strings.HasPrefix(segs[0], "@") {
		n = 2
	}
	if len(segs) <= n {
		return "", "", false
	}
	return strings.Join(segs[:n], "/"), strings.Join(segs[n:], "/"), true
}
