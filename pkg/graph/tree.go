package graph

import "fmt"

// TreeNode is one entry of the nested (tree) form. Requires lists the names
// of the entry's direct dependencies in order; Dependencies holds entries
// installed in the entry's own scope.
type TreeNode struct {
	Node
	Requires     []string
	Dependencies []*TreeNode

	parent   *TreeNode
	resolved []*TreeNode
}

// Tree is the nested form of a resolved dependency graph. A child reference
// resolves by searching the referencing entry's own Dependencies first, then
// each enclosing entry's, innermost first. A name that resolves nowhere
// becomes a removed optional dependency.
type Tree struct {
	root  *TreeNode
	index map[*Node]*TreeNode
}

// NewTree indexes root and resolves every Requires reference. The root entry
// is marked Root. Children on every node are filled with the resolved
// identities.
func NewTree(root *TreeNode) (*Tree, error) {
	if root == nil {
		return nil, ErrNoRoot
	}
	t := &Tree{root: root, index: make(map[*Node]*TreeNode)}
	root.Root = true
	if err := t.link(root, nil); err != nil {
		return nil, err
	}
	t.resolve(root)
	return t, nil
}

func (t *Tree) link(tn, parent *TreeNode) error {
	if tn.Name == "" && !tn.Root {
		return fmt.Errorf("%w: tree entry under %s", ErrInvalidNodeID, parent.NameVersion())
	}
	tn.parent = parent
	t.index[&tn.Node] = tn
	for _, child := range tn.Dependencies {
		if err := t.link(child, tn); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) resolve(tn *TreeNode) {
	tn.resolved = make([]*TreeNode, 0, len(tn.Requires))
	tn.Children = make([]Identity, 0, len(tn.Requires))
	for _, name := range tn.Requires {
		child := lookup(tn, name)
		if child == nil {
			child = &TreeNode{Node: Node{Identity: Identity{Name: name}}, parent: tn}
			t.index[&child.Node] = child
		}
		tn.resolved = append(tn.resolved, child)
		tn.Children = append(tn.Children, child.Identity)
	}
	for _, dep := range tn.Dependencies {
		t.resolve(dep)
	}
}

// lookup finds name in from's scope chain, innermost first.
func lookup(from *TreeNode, name string) *TreeNode {
	for scope := from; scope != nil; scope = scope.parent {
		for _, dep := range scope.Dependencies {
			if dep.Name == name {
				return dep
			}
		}
	}
	return nil
}

// Root implements [Source].
func (t *Tree) Root() *Node { return &t.root.Node }

// Children implements [Source].
func (t *Tree) Children(path Path) ([]*Node, error) {
	last := path.Last()
	if last == nil {
		return nil, nil
	}
	tn, ok := t.index[last]
	if !ok {
		return nil, fmt.Errorf("tree: node %s does not belong to this tree", last.NameVersion())
	}
	children := make([]*Node, len(tn.resolved))
	for i, c := range tn.resolved {
		children[i] = &c.Node
	}
	return children, nil
}

var _ Source = (*Tree)(nil)
