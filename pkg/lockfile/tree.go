package lockfile

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
)

func (l *loader) tree() (*graph.Tree, error) {
	names, _ := l.rootDependencies()
	deps, err := l.treeEntries(l.doc.Get("dependencies"))
	if err != nil {
		return nil, err
	}
	root := &graph.TreeNode{
		Node:         graph.Node{Identity: l.rootIdentity()},
		Requires:     names,
		Dependencies: deps,
	}
	return graph.NewTree(root)
}

// treeEntries converts a v1 "dependencies" object. Entries with a "file:"
// version carry their locator in the version field.
func (l *loader) treeEntries(obj gjson.Result) ([]*graph.TreeNode, error) {
	if !obj.IsObject() {
		return nil, nil
	}
	var (
		out []*graph.TreeNode
		err error
	)
	obj.ForEach(func(key, e gjson.Result) bool {
		if err = errors.ValidateNpmPackageName(key.String()); err != nil {
			err = errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s: entry %q", PackageLock, key.String())
			return false
		}
		if l.opts.Production && e.Get("dev").Bool() {
			return true
		}
		if e.Get("bundled").Bool() {
			return true
		}
		version := e.Get("version").String()
		resolved := e.Get("resolved").String()
		if strings.HasPrefix(version, "file:") && resolved == "" {
			resolved = version
		}

		var requires []string
		e.Get("requires").ForEach(func(name, _ gjson.Result) bool {
			requires = append(requires, name.String())
			return true
		})

		var nested []*graph.TreeNode
		if nested, err = l.treeEntries(e.Get("dependencies")); err != nil {
			return false
		}
		out = append(out, &graph.TreeNode{
			Node: graph.Node{
				Identity:  graph.Identity{Name: key.String(), Version: version},
				Resolved:  l.locator(resolved),
				Integrity: e.Get("integrity").String(),
			},
			Requires:     requires,
			Dependencies: nested,
		})
		return true
	})
	return out, err
}
