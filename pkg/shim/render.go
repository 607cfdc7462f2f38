package shim

import (
	"fmt"
	"path"
	"strings"
)

// Shim is everything needed to render one wrapper script.
type Shim struct {
	Name      string // executable name under .bin
	StoreRoot string // store root below node_modules
	Target    Target
	Shebang   Shebang
	// Interpreter is the absolute interpreter path. For ExecEnv it is the
	// result of the PATH lookup made at generation time.
	Interpreter string
	// NodePath lists module search directories, highest priority first.
	NodePath []Target
}

// Render produces the POSIX shell wrapper for s. The script derives $b, $n
// and $p from its own location so the tree can be moved after install.
func Render(s Shim) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# %s: generated by nodestore\n", s.Name)
	b.WriteString("set -e\n")
	b.WriteString(`b=$(cd "$(dirname "$0")" && pwd)` + "\n")
	b.WriteString(`n=$(dirname "$b")` + "\n")
	fmt.Fprintf(&b, "p=\"$n/%s\"\n", escape(s.StoreRoot))

	dirs := make([]string, len(s.NodePath))
	for i, t := range s.NodePath {
		dirs[i] = t.unquoted()
	}
	fmt.Fprintf(&b, "NODE_PATH=\"%s${NODE_PATH:+:$NODE_PATH}\"\n", strings.Join(dirs, ":"))
	b.WriteString("export NODE_PATH\n")

	target := s.Target.Word()
	switch s.Shebang.Exec {
	case ExecAbsolute:
		fmt.Fprintf(&b, "exec %s%s %s \"$@\"\n", word(s.Shebang.Interpreter), s.Shebang.Args, target)
	case ExecEnv:
		local := `"$b/` + escape(s.Shebang.Interpreter) + `"`
		fmt.Fprintf(&b, "if [ -x %s ]; then\n", local)
		fmt.Fprintf(&b, "  exec %s%s %s \"$@\"\n", local, s.Shebang.Args, target)
		b.WriteString("else\n")
		fmt.Fprintf(&b, "  exec %s%s %s \"$@\"\n", word(s.Interpreter), s.Shebang.Args, target)
		b.WriteString("fi\n")
	default:
		fmt.Fprintf(&b, "exec %s \"$@\"\n", target)
	}
	return b.String()
}

// ModulePath computes the NODE_PATH entries for a binary whose directory,
// relative to its package root, is dir. The package root is pkgRoot below
// VarStore when the package lives in the store, or below VarModules
// otherwise. The order is: every node_modules from dir up to the package
// root, the package's own store node_modules, then the store-wide
// node_modules.
func ModulePath(root Target, dir string) []Target {
	var out []Target
	if root.Var != "" {
		for d := path.Clean(dir); ; d = path.Dir(d) {
			if d == "." || d == "/" {
				out = append(out, Target{Var: root.Var, Rel: path.Join(root.Rel, "node_modules")})
				break
			}
			out = append(out, Target{Var: root.Var, Rel: path.Join(root.Rel, d, "node_modules")})
		}
		if root.Var == VarStore {
			// root is <key>/node_modules/<name>; the own store node_modules
			// is <key>/node_modules.
			if key, _, ok := strings.Cut(root.Rel, "/node_modules/"); ok {
				out = append(out, Target{Var: VarStore, Rel: path.Join(key, "node_modules")})
			}
		}
	}
	return append(out, Target{Var: VarStore, Rel: "node_modules"})
}

// word quotes s for the shell when it contains anything beyond a
// conservative set of path characters.
func word(s string) string {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+@:", r)) {
			return `"` + escape(s) + `"`
		}
	}
	return s
}
