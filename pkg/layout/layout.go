// Package layout computes where every package lives in the store and which
// relative symlinks connect a dependent to it.
//
// The store is flat: regardless of how deep a package sits in the logical
// dependency tree it is materialized exactly once, under
//
//	node_modules/<store-root>/<key>/node_modules/<name>
//
// where <key> is [StoreKey]. Direct dependencies of the root package are
// linked from node_modules/<name>; every other dependency is linked from its
// parent's private node_modules inside the store, pointing sideways at the
// sibling store entry. All paths are relative to the project directory and
// use forward slashes; link targets are relative to the link's directory.
package layout

import (
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
)

const (
	// ModulesDir is the directory node's resolver searches.
	ModulesDir = "node_modules"

	// DefaultStoreRoot is the store directory inside node_modules.
	DefaultStoreRoot = ".store"

	// BinDirName is the binaries directory inside node_modules.
	BinDirName = ".bin"
)

// BinDir is the binaries directory relative to the project directory.
var BinDir = path.Join(ModulesDir, BinDirName)

// StorePlan is the on-disk placement of one dependency reached through one
// ancestor path. StoreDir depends on identity only; LinkPath and LinkTarget
// depend on where in the tree the dependency was reached.
type StorePlan struct {
	StoreDir   string // real (or directory-symlinked) package location
	LinkPath   string // symlink to create
	LinkTarget string // relative target written into LinkPath
}

// Empty reports whether the plan has nothing to do (the root package).
func (p StorePlan) Empty() bool { return p.StoreDir == "" && p.LinkPath == "" }

// StoreKey escapes an identity into a store directory name: NameVersion with
// every "/" replaced by "+".
func StoreKey(id graph.Identity) string {
	return strings.ReplaceAll(id.NameVersion(), "/", "+")
}

// StoreDir returns the store location of id.
func StoreDir(storeRoot string, id graph.Identity) string {
	return path.Join(ModulesDir, storeRoot, StoreKey(id), ModulesDir, id.Name)
}

// Plan computes the placement of dep reached through p. The root package
// (a path of length one) gets an empty plan.
func Plan(storeRoot string, dep graph.Identity, p graph.Path) StorePlan {
	if storeRoot == "" {
		storeRoot = DefaultStoreRoot
	}
	scopeUp := ""
	if dep.Scoped() {
		// the link sits one directory deeper, inside @scope/
		scopeUp = "../"
	}
	key := StoreKey(dep)

	switch {
	case p.IsRootDependency():
		return StorePlan{
			StoreDir:   StoreDir(storeRoot, dep),
			LinkPath:   path.Join(ModulesDir, dep.Name),
			LinkTarget: scopeUp + path.Join(storeRoot, key, ModulesDir, dep.Name),
		}
	case p.IsNested():
		parent := p.Parent()
		return StorePlan{
			StoreDir:   StoreDir(storeRoot, dep),
			LinkPath:   path.Join(ModulesDir, storeRoot, StoreKey(parent.Identity), ModulesDir, dep.Name),
			LinkTarget: scopeUp + "../../" + path.Join(key, ModulesDir, dep.Name),
		}
	default:
		return StorePlan{}
	}
}

// ParseStoreKey reverses [StoreKey] for keys whose version looks like a
// semantic version. This is a one-way rule, not a general inverse: the key
// is split on the last "@" followed by a parseable version, and only the
// first "+" of a scoped name is turned back into "/". Names that themselves
// contain "+" cannot be recovered.
func ParseStoreKey(key string) (graph.Identity, error) {
	for i := strings.LastIndex(key, "@"); i > 0; i = strings.LastIndex(key[:i], "@") {
		version := key[i+1:]
		if _, err := semver.StrictNewVersion(version); err != nil {
			continue
		}
		name := key[:i]
		if strings.HasPrefix(name, "@") {
			name = strings.Replace(name, "+", "/", 1)
		}
		return graph.Identity{Name: name, Version: version}, nil
	}
	return graph.Identity{}, errors.New(errors.ErrCodeInvalidInput, "store key %q has no version suffix", key)
}
