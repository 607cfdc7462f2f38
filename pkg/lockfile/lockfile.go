// Package lockfile turns a project's package.json and package-lock.json into
// a [graph.Source] the installer can walk.
//
// Lock file version 1 nests entries the way they would be laid out on disk
// and becomes a [graph.Tree]. Versions 2 and 3 list entries by install
// location and become a [graph.Graph] whose edges are found by node's module
// lookup rules. Any other version is UNSUPPORTED_LOCK_VERSION, which callers
// treat as "nothing to do".
package lockfile

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/manifest"
)

// File names looked up in the project directory.
const (
	PackageLock = "package-lock.json"
	YarnLock    = "yarn.lock"
)

// Project is a loaded project ready to install.
type Project struct {
	Dir         string
	Manifest    *manifest.Manifest
	LockVersion int
	Source      graph.Source
}

// Root returns the identity of the package being installed.
func (p *Project) Root() graph.Identity {
	return p.Source.Root().Identity
}

// Options controls what Load includes.
type Options struct {
	// Production leaves out devDependencies of the root and every entry the
	// lock file marks as dev-only.
	Production bool
}

// Load reads dir/package.json and dir/package-lock.json.
func Load(dir string, opts Options) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", dir)
	}
	m, err := manifest.Read(abs)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no %s in %s", manifest.FileName, abs)
	}
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(abs, PackageLock))
	if stderrors.Is(err, fs.ErrNotExist) {
		if _, yerr := os.Stat(filepath.Join(abs, YarnLock)); yerr == nil {
			return nil, errors.New(errors.ErrCodeUnsupportedLock,
				"found %s but no %s: yarn projects are not installed, nothing was written (generate a %s with `npm install --package-lock-only`)",
				YarnLock, PackageLock, PackageLock)
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "no %s in %s", PackageLock, abs)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", PackageLock)
	}
	return Parse(abs, m, data, opts)
}

// Parse builds a Project from an already-read manifest and lock file. dir
// must be absolute; relative "file:" locators are resolved against it.
func Parse(dir string, m *manifest.Manifest, lock []byte, opts Options) (*Project, error) {
	if !gjson.ValidBytes(lock) {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s is not valid JSON", PackageLock)
	}
	doc := gjson.ParseBytes(lock)
	version := int(doc.Get("lockfileVersion").Int())

	p := &Project{Dir: dir, Manifest: m, LockVersion: version}
	l := &loader{dir: dir, manifest: m, doc: doc, opts: opts}
	var err error
	switch version {
	case 1:
		p.Source, err = l.tree()
	case 2, 3:
		p.Source, err = l.graph()
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedLock, "lockfileVersion %d", version)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// loader holds what both lock formats need while building.
type loader struct {
	dir      string
	manifest *manifest.Manifest
	doc      gjson.Result
	opts     Options
}

func (l *loader) rootIdentity() graph.Identity {
	id := graph.Identity{Name: l.manifest.Name, Version: l.manifest.Version}
	if id.Name == "" {
		id.Name = l.doc.Get("name").String()
	}
	if id.Name == "" {
		id.Name = filepath.Base(l.dir)
	}
	if id.Version == "" {
		id.Version = l.doc.Get("version").String()
	}
	return id
}

// rootDependencies lists the root's direct dependency names in install
// order: dependencies, optionalDependencies, then devDependencies. The
// returned set marks which names are optional.
func (l *loader) rootDependencies() ([]string, map[string]bool) {
	var names []string
	optional := make(map[string]bool)
	seen := make(map[string]bool)
	add := func(deps []manifest.Dependency, opt bool) {
		for _, d := range deps {
			if opt {
				optional[d.Name] = true
			}
			if !seen[d.Name] {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
		}
	}
	add(l.manifest.Dependencies, false)
	add(l.manifest.OptionalDependencies, true)
	if !l.opts.Production {
		add(l.manifest.DevDependencies, false)
	}
	return names, optional
}

// locator makes a lock file "resolved" value usable by the source resolver:
// "file:" paths become absolute. Anything else is returned unchanged and
// left for the resolver to accept or reject.
func (l *loader) locator(resolved string) graph.Locator {
	p, ok := strings.CutPrefix(resolved, "file:")
	if !ok {
		return graph.Locator(resolved)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.dir, filepath.FromSlash(p))
	}
	return graph.Locator(p)
}
