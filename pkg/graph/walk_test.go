package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGraph creates a graph rooted at "app@1.0.0" from name -> children
// adjacency; every package has version 1.0.0.
func buildGraph(t *testing.T, adj map[string][]string, order []string) *Graph {
	t.Helper()
	g, err := NewGraph(Node{Identity: id("app", "1.0.0")})
	require.NoError(t, err)
	for _, name := range order {
		if name == "app" {
			continue
		}
		require.NoError(t, g.AddNode(Node{Identity: id(name, "1.0.0"), Resolved: Locator("/pkgs/" + name + ".tgz")}))
	}
	for _, from := range order {
		for _, to := range adj[from] {
			require.NoError(t, g.AddEdge(Edge{From: id(from, "1.0.0"), To: id(to, "1.0.0")}))
		}
	}
	return g
}

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var visited []string
	err := Walk(context.Background(), src, func(ctx context.Context, dep *Node, recurse func() error, path Path) error {
		visited = append(visited, path.String())
		return recurse()
	})
	require.NoError(t, err)
	return visited
}

func TestWalkOrder(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"app": {"b", "a"},
		"a":   {"c"},
		"b":   {"c"},
	}, []string{"app", "a", "b", "c"})

	assert.Equal(t, []string{
		"app@1.0.0",
		"app@1.0.0 > b@1.0.0",
		"app@1.0.0 > b@1.0.0 > c@1.0.0",
		"app@1.0.0 > a@1.0.0",
		"app@1.0.0 > a@1.0.0 > c@1.0.0",
	}, collect(t, g), "shared identities are visited once per distinct path")
}

func TestWalkCycleTerminates(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"app": {"a"},
		"a":   {"b"},
		"b":   {"a", "app"},
	}, []string{"app", "a", "b"})

	assert.Equal(t, []string{
		"app@1.0.0",
		"app@1.0.0 > a@1.0.0",
		"app@1.0.0 > a@1.0.0 > b@1.0.0",
	}, collect(t, g))
}

func TestWalkVisitorControlsRecursion(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"app": {"a"},
		"a":   {"b"},
	}, []string{"app", "a", "b"})

	var events []string
	err := Walk(context.Background(), g, func(ctx context.Context, dep *Node, recurse func() error, path Path) error {
		events = append(events, "enter "+dep.Name)
		if dep.Name == "a" {
			// a is a leaf for this visitor
			events = append(events, "leave "+dep.Name)
			return nil
		}
		if err := recurse(); err != nil {
			return err
		}
		require.NoError(t, recurse(), "second recurse is a no-op")
		events = append(events, "leave "+dep.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"enter app", "enter a", "leave a", "leave app"}, events)
}

func TestWalkPathDepth(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"app": {"a"},
		"a":   {"b"},
	}, []string{"app", "a", "b"})

	kinds := map[string]string{}
	err := Walk(context.Background(), g, func(ctx context.Context, dep *Node, recurse func() error, path Path) error {
		switch {
		case path.IsRoot():
			kinds[dep.Name] = "root"
		case path.IsRootDependency():
			kinds[dep.Name] = "direct"
		case path.IsNested():
			kinds[dep.Name] = "nested"
		}
		return recurse()
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app": "root", "a": "direct", "b": "nested"}, kinds)
}

func TestWalkStopsOnError(t *testing.T) {
	g := buildGraph(t, map[string][]string{"app": {"a", "b"}}, []string{"app", "a", "b"})
	boom := errors.New("boom")

	var visited []string
	err := Walk(context.Background(), g, func(ctx context.Context, dep *Node, recurse func() error, path Path) error {
		visited = append(visited, dep.Name)
		if dep.Name == "a" {
			return boom
		}
		return recurse()
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"app", "a"}, visited)
}

func TestWalkCancelled(t *testing.T) {
	g := buildGraph(t, map[string][]string{"app": {"a"}}, []string{"app", "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, g, func(ctx context.Context, dep *Node, recurse func() error, path Path) error {
		return recurse()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type emptySource struct{}

func (emptySource) Root() *Node                    { return nil }
func (emptySource) Children(Path) ([]*Node, error) { return nil, nil }

func TestWalkNoRoot(t *testing.T) {
	err := Walk(context.Background(), emptySource{}, func(context.Context, *Node, func() error, Path) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrNoRoot)
}
