package graph

import "context"

// Source is the single shape the walker understands: a root node plus a way
// to obtain the children of the node a path ends at.
type Source interface {
	Root() *Node
	Children(path Path) ([]*Node, error)
}

// Visitor is called once per visited node. recurse walks the node's
// children; the visitor decides whether and when to call it, which lets it
// finish its own pre-work before descending and run post-work afterwards.
// Calling recurse more than once is a no-op after the first call.
type Visitor func(ctx context.Context, dep *Node, recurse func() error, path Path) error

// Walk traverses src depth-first starting at its root. Children whose
// identity is already on the ancestor path are skipped. The first error
// returned by the visitor, by src, or by ctx aborts the walk.
func Walk(ctx context.Context, src Source, visit Visitor) error {
	root := src.Root()
	if root == nil {
		return ErrNoRoot
	}
	return walk(ctx, src, Path{root}, visit)
}

func walk(ctx context.Context, src Source, path Path, visit Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recursed := false
	recurse := func() error {
		if recursed {
			return nil
		}
		recursed = true
		children, err := src.Children(path)
		if err != nil {
			return err
		}
		for _, child := range children {
			if path.Contains(child.Identity) {
				continue
			}
			if err := walk(ctx, src, path.Append(child), visit); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(ctx, path.Last(), recurse, path)
}
