package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name, version string, requires []string, deps ...*TreeNode) *TreeNode {
	return &TreeNode{
		Node:         Node{Identity: id(name, version), Resolved: Locator("/pkgs/" + name + "-" + version + ".tgz")},
		Requires:     requires,
		Dependencies: deps,
	}
}

func TestTreeScopeResolution(t *testing.T) {
	// app requires a and b; a carries its own nested c@2 while b sees the
	// hoisted c@1.
	root := &TreeNode{
		Node:     Node{Identity: id("app", "1.0.0")},
		Requires: []string{"a", "b"},
		Dependencies: []*TreeNode{
			entry("a", "1.0.0", []string{"c"}, entry("c", "2.0.0", nil)),
			entry("b", "1.0.0", []string{"c"}),
			entry("c", "1.0.0", nil),
		},
	}
	tree, err := NewTree(root)
	require.NoError(t, err)
	assert.True(t, tree.Root().Root)

	assert.Equal(t, []string{
		"app@1.0.0",
		"app@1.0.0 > a@1.0.0",
		"app@1.0.0 > a@1.0.0 > c@2.0.0",
		"app@1.0.0 > b@1.0.0",
		"app@1.0.0 > b@1.0.0 > c@1.0.0",
	}, collect(t, tree))

	assert.Equal(t, []Identity{id("a", "1.0.0"), id("b", "1.0.0")}, root.Children)
}

func TestTreeMissingRequireIsRemoved(t *testing.T) {
	root := &TreeNode{
		Node:     Node{Identity: id("app", "1.0.0")},
		Requires: []string{"fsevents"},
	}
	tree, err := NewTree(root)
	require.NoError(t, err)

	children, err := tree.Children(Path{tree.Root()})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].Removed())
	assert.Equal(t, "fsevents", children[0].Name)
}

func TestTreeCycle(t *testing.T) {
	root := &TreeNode{
		Node:     Node{Identity: id("app", "1.0.0")},
		Requires: []string{"a"},
		Dependencies: []*TreeNode{
			entry("a", "1.0.0", []string{"b"}),
			entry("b", "1.0.0", []string{"a"}),
		},
	}
	tree, err := NewTree(root)
	require.NoError(t, err)
	assert.Len(t, collect(t, tree), 3)
}

func TestTreeForeignNode(t *testing.T) {
	tree, err := NewTree(&TreeNode{Node: Node{Identity: id("app", "1")}})
	require.NoError(t, err)
	_, err = tree.Children(Path{&Node{Identity: id("x", "1")}})
	assert.Error(t, err)
}

func TestNewTreeNil(t *testing.T) {
	_, err := NewTree(nil)
	assert.ErrorIs(t, err, ErrNoRoot)
}
