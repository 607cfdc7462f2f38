package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node has an
	// empty name. Every node must be addressable by its identity.
	ErrInvalidNodeID = errors.New("node name must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same identity already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node identity")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrNoRoot is returned by [Walk] when the source has no root node.
	ErrNoRoot = errors.New("graph has no root node")
)

// Edge is a directed dependency from one identity to another.
type Edge struct {
	From Identity
	To   Identity
}

// Graph is the node/edge form of a resolved dependency graph. Nodes are
// keyed by [Identity.NameVersion]; outgoing edges keep insertion order, which
// is the order children are walked in.
//
// The zero value is not usable - use [NewGraph].
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	order    []string            // insertion order of node keys
	edges    []Edge              // insertion order of edges
	outgoing map[string][]string // node key -> child keys
	incoming map[string][]string // node key -> parent keys
	root     string
}

// NewGraph creates an empty graph whose root is the given node. The root
// node is added with Root set.
func NewGraph(root Node) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
	root.Root = true
	if err := g.AddNode(root); err != nil {
		return nil, err
	}
	g.root = root.NameVersion()
	return g, nil
}

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the name is
// empty or ErrDuplicateNodeID if the identity is already present. Children
// listed on the node are ignored; use AddEdge.
func (g *Graph) AddNode(n Node) error {
	if n.Name == "" {
		return ErrInvalidNodeID
	}
	key := n.NameVersion()
	if _, exists := g.nodes[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, key)
	}
	n.Children = nil
	node := &n
	g.nodes[key] = node
	g.order = append(g.order, key)
	return nil
}

// AddEdge adds a directed edge between two existing nodes and appends the
// target to the source's Children. Duplicate edges are ignored so a package
// listed under several dependency kinds is walked once per parent.
func (g *Graph) AddEdge(e Edge) error {
	from, to := e.From.NameVersion(), e.To.NameVersion()
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, to)
	}
	if slices.Contains(g.outgoing[from], to) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	src.Children = append(src.Children, e.To)
	return nil
}

// Root returns the root node.
func (g *Graph) Root() *Node { return g.nodes[g.root] }

// Node returns the node with the given identity and true, or nil and false
// if not found. The returned pointer refers to the node in the graph.
func (g *Graph) Node(id Identity) (*Node, bool) {
	n, ok := g.nodes[id.NameVersion()]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, key := range g.order {
		nodes = append(nodes, g.nodes[key])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Parents returns the nodes that depend on id.
func (g *Graph) Parents(id Identity) []*Node {
	var parents []*Node
	for _, key := range g.incoming[id.NameVersion()] {
		parents = append(parents, g.nodes[key])
	}
	return parents
}

// Children implements [Source]. It returns the direct dependencies of the
// last node on path, in insertion order.
func (g *Graph) Children(path Path) ([]*Node, error) {
	last := path.Last()
	if last == nil {
		return nil, nil
	}
	keys := g.outgoing[last.NameVersion()]
	children := make([]*Node, 0, len(keys))
	for _, key := range keys {
		children = append(children, g.nodes[key])
	}
	return children, nil
}

var _ Source = (*Graph)(nil)
