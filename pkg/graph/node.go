package graph

import "strings"

// Locator is the pre-resolved source of a package: an absolute path to a
// packed archive, an absolute path to an unpacked directory, or empty for
// an optional dependency that was pruned from the lock file.
type Locator string

// Empty reports whether the locator is the removed-optional sentinel.
func (l Locator) Empty() bool { return strings.TrimSpace(string(l)) == "" }

// Node is one package in a resolved dependency graph.
type Node struct {
	Identity

	Resolved  Locator // where the package contents come from
	Integrity string  // SRI string from the lock file, may be empty

	// Root marks the synthetic node for the package being installed. The
	// root has no locator but is never a removed optional dependency.
	Root bool

	// Children lists the identities of direct dependencies in insertion
	// order. It is filled by the Source that produced the node.
	Children []Identity
}

// Removed reports whether n stands for an optional dependency that was
// pruned from install resolution: both version and locator are empty.
func (n *Node) Removed() bool {
	return !n.Root && n.Version == "" && n.Resolved.Empty()
}

// Path is the ordered chain of nodes from the install root to the node
// currently being visited.
type Path []*Node

// Depth returns the number of nodes on the path.
func (p Path) Depth() int { return len(p) }

// IsRoot reports whether the path ends at the package being installed.
func (p Path) IsRoot() bool { return len(p) == 1 }

// IsRootDependency reports whether the path ends at a direct dependency of
// the root package.
func (p Path) IsRootDependency() bool { return len(p) == 2 }

// IsNested reports whether the path ends at a dependency of a dependency.
func (p Path) IsNested() bool { return len(p) > 2 }

// Last returns the node the path ends at, or nil for an empty path.
func (p Path) Last() *Node {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Parent returns the node immediately above the last one, or nil when the
// path is shorter than two nodes.
func (p Path) Parent() *Node {
	if len(p) < 2 {
		return nil
	}
	return p[len(p)-2]
}

// Contains reports whether any node on the path has the given identity.
func (p Path) Contains(id Identity) bool {
	for _, n := range p {
		if n.Identity == id {
			return true
		}
	}
	return false
}

// Append returns a new path ending at n. The receiver is never modified and
// the result never shares its backing array, so sibling paths cannot alias.
func (p Path) Append(n *Node) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, n)
}

// String renders the path as "a@1 > b@2 > c@3".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = n.NameVersion()
	}
	return strings.Join(parts, " > ")
}
