package shim

import (
	"path"
	"strings"

	"github.com/matzehuels/nodestore/pkg/layout"
)

// Shell variables every shim computes from its own location.
const (
	VarBin     = "$b" // the .bin directory holding the shim
	VarModules = "$n" // the top-level node_modules directory
	VarStore   = "$p" // the store root below node_modules
)

// Target is a path the shim refers to, anchored at one of the runtime
// variables or, when Var is empty, an absolute literal.
type Target struct {
	Var string
	Rel string
}

// Word renders t as a double-quoted shell word.
func (t Target) Word() string {
	return `"` + t.unquoted() + `"`
}

func (t Target) unquoted() string {
	if t.Var == "" {
		return escape(t.Rel)
	}
	return t.Var + "/" + escape(t.Rel)
}

// ResolveTarget anchors a .bin link target at a runtime variable. Relative
// targets are interpreted from the .bin directory and classified by whole
// path segments: under the store root, else under node_modules, else left
// relative to .bin. Absolute targets are kept literally.
func ResolveTarget(storeRoot, linkTarget string) Target {
	linkTarget = strings.ReplaceAll(linkTarget, `\`, "/")
	if path.IsAbs(linkTarget) {
		return Target{Rel: path.Clean(linkTarget)}
	}
	if storeRoot == "" {
		storeRoot = layout.DefaultStoreRoot
	}

	rel := path.Clean(path.Join(layout.BinDirName, linkTarget))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return Target{Var: VarBin, Rel: path.Clean(linkTarget)}
	}
	if rest, ok := underSegments(rel, storeRoot); ok {
		return Target{Var: VarStore, Rel: rest}
	}
	return Target{Var: VarModules, Rel: rel}
}

// underSegments reports whether p lies strictly below dir, comparing whole
// segments, and returns the remainder.
func underSegments(p, dir string) (string, bool) {
	dir = path.Clean(dir)
	if !strings.HasPrefix(p, dir+"/") {
		return "", false
	}
	rest := strings.TrimPrefix(p, dir+"/")
	return rest, rest != ""
}

// escape makes s safe inside a double-quoted shell string.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return r.Replace(s)
}
