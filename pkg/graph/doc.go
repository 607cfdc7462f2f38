// Package graph models a resolved dependency graph and walks it depth-first.
//
// # Overview
//
// An installer receives its input already resolved: every package is a [Node]
// keyed by its [Identity] (name and version), carrying a source [Locator], an
// integrity string and the ordered identities of its direct dependencies.
// That input arrives in one of two shapes:
//
//   - [Graph]: nodes keyed by identity plus directed edges (lock file v2/v3)
//   - [Tree]: nested nodes whose child references resolve through enclosing
//     scopes (lock file v1)
//
// Both implement [Source], the single shape [Walk] understands. The walker
// never branches on which one it was handed.
//
// # Walking
//
// [Walk] calls the [Visitor] for the root and, whenever the visitor invokes
// the recurse continuation, for each child in insertion order. A child whose
// identity already appears on the current ancestor [Path] is skipped, so
// cycles terminate, while the same identity may still be visited along
// several distinct paths:
//
//	err := graph.Walk(ctx, src, func(ctx context.Context, dep *graph.Node, recurse func() error, path graph.Path) error {
//	    // pre-work for dep
//	    if err := recurse(); err != nil {
//	        return err
//	    }
//	    // post-work: every child of dep has been visited
//	    return nil
//	})
//
// # Concurrency
//
// Graph and Tree values are not safe for concurrent mutation. Walk is
// strictly sequential.
package graph
