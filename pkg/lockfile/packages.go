package lockfile

import (
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/manifest"
)

const modulesPrefix = "node_modules/"

// packageTable is the "packages" object of a v2/v3 lock file.
type packageTable struct {
	entries   map[string]gjson.Result
	locations []string // document order

	ids     map[string]graph.Identity // installed location -> identity
	bundled map[string]bool           // locations shipped inside a parent tarball
}

func (l *loader) graph() (*graph.Graph, error) {
	packages := l.doc.Get("packages")
	if !packages.IsObject() {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s has no \"packages\" object", PackageLock)
	}
	t := &packageTable{
		entries: make(map[string]gjson.Result),
		ids:     make(map[string]graph.Identity),
		bundled: make(map[string]bool),
	}
	packages.ForEach(func(key, value gjson.Result) bool {
		t.entries[key.String()] = value
		t.locations = append(t.locations, key.String())
		return true
	})

	rootID := l.rootIdentity()
	g, err := graph.NewGraph(graph.Node{Identity: rootID})
	if err != nil {
		return nil, err
	}

	// Nodes, one per identity; the first location of an identity wins.
	var installed []string
	for _, loc := range t.locations {
		if !strings.HasPrefix(loc, modulesPrefix) && !strings.Contains(loc, "/"+modulesPrefix) {
			continue // the root, or a workspace/link source directory
		}
		e := t.entries[loc]
		if l.opts.Production && e.Get("dev").Bool() {
			continue
		}
		if e.Get("inBundle").Bool() {
			t.bundled[loc] = true
			continue
		}
		node := l.packageNode(loc, e, t)
		if err := errors.ValidateNpmPackageName(node.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s: entry %q", PackageLock, loc)
		}
		t.ids[loc] = node.Identity
		if _, exists := g.Node(node.Identity); !exists {
			if err := g.AddNode(node); err != nil {
				return nil, err
			}
			installed = append(installed, loc)
		}
	}

	names, optional := l.rootDependencies()
	for _, name := range names {
		if err := l.connect(g, t, "", rootID, name, optional[name], false); err != nil {
			return nil, err
		}
	}
	for _, loc := range installed {
		e, at := t.entries[loc], loc
		if e.Get("link").Bool() {
			// a linked package resolves from its source directory
			at = e.Get("resolved").String()
			e = t.entries[at]
		}
		from := t.ids[loc]
		for _, d := range manifest.Dependencies(e.Get("dependencies")) {
			if err := l.connect(g, t, at, from, d.Name, false, false); err != nil {
				return nil, err
			}
		}
		for _, d := range manifest.Dependencies(e.Get("optionalDependencies")) {
			if err := l.connect(g, t, at, from, d.Name, true, false); err != nil {
				return nil, err
			}
		}
		for _, d := range manifest.Dependencies(e.Get("peerDependencies")) {
			if err := l.connect(g, t, at, from, d.Name, false, true); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// packageNode builds the node for the entry installed at loc. Link entries
// take their version and dependencies from the linked source directory,
// which becomes a directory locator.
func (l *loader) packageNode(loc string, e gjson.Result, t *packageTable) graph.Node {
	name := e.Get("name").String()
	if name == "" {
		name = nameFromLocation(loc)
	}
	if e.Get("link").Bool() {
		target := e.Get("resolved").String()
		src := t.entries[target]
		return graph.Node{
			Identity: graph.Identity{Name: name, Version: src.Get("version").String()},
			Resolved: graph.Locator(filepath.Join(l.dir, filepath.FromSlash(target))),
		}
	}
	return graph.Node{
		Identity:  graph.Identity{Name: name, Version: e.Get("version").String()},
		Resolved:  l.locator(e.Get("resolved").String()),
		Integrity: e.Get("integrity").String(),
	}
}

// connect adds an edge from the package at location from to whichever
// installed package name resolves to. A missing optional dependency becomes
// a removed node; a missing peer is ignored; anything else missing is an
// invalid lock file.
func (l *loader) connect(g *graph.Graph, t *packageTable, from string, fromID graph.Identity, name string, optional, peer bool) error {
	loc, ok := resolveLocation(t, from, name)
	if ok && t.bundled[loc] {
		return nil
	}
	var to graph.Identity
	switch {
	case ok:
		to = t.ids[loc]
	case peer:
		return nil
	case optional:
		to = graph.Identity{Name: name}
		if _, exists := g.Node(to); !exists {
			if err := g.AddNode(graph.Node{Identity: to}); err != nil {
				return err
			}
		}
	default:
		return errors.New(errors.ErrCodeInvalidManifest,
			"%s: dependency %q of %s has no entry", PackageLock, name, fromID.NameVersion())
	}
	return g.AddEdge(graph.Edge{From: fromID, To: to})
}

// resolveLocation applies node's lookup from the package installed at from:
// from/node_modules/name, then the same in each enclosing package, then the
// top-level node_modules.
func resolveLocation(t *packageTable, from, name string) (string, bool) {
	dir := from
	for {
		cand := modulesPrefix + name
		if dir != "" {
			cand = dir + "/" + cand
		}
		if _, ok := t.ids[cand]; ok || t.bundled[cand] {
			return cand, true
		}
		if dir == "" {
			return "", false
		}
		i := strings.LastIndex(dir, modulesPrefix)
		if i <= 0 {
			dir = ""
		} else {
			dir = strings.TrimSuffix(dir[:i], "/")
		}
	}
}

// nameFromLocation returns the package name installed at a location such as
// "node_modules/a/node_modules/@org/b".
func nameFromLocation(loc string) string {
	if i := strings.LastIndex(loc, modulesPrefix); i >= 0 {
		return loc[i+len(modulesPrefix):]
	}
	return loc
}
