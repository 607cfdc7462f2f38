// Package pkg provides the libraries behind nodestore, an installer that
// lays out locked npm dependencies in a flat, content-addressed store.
//
// # Overview
//
// Every package version is unpacked once under node_modules/.store and
// exposed to its dependents through symlinks, so each package sees exactly
// the dependencies it declared. The pkg directory is organized as:
//
//  1. [graph] - Identities, nodes, graph and tree sources, the walker
//  2. [layout] - Store keys and link paths for one visit
//  3. [source] - Archive extraction, integrity checks, local directories
//  4. [linker] - Symlink creation with collision detection, .bin links
//  5. [shim] - Wrapper scripts for .bin entries
//  6. [lifecycle] - preinstall/install/postinstall scheduling
//  7. [install] - The orchestrator tying the above together
//
// Around the core sit [lockfile] and [manifest] (reading package-lock.json
// and package.json), [config], [cache], [errors], [observability],
// [render] (plan export) and [buildinfo].
//
// # Architecture
//
//	package.json + package-lock.json
//	         ↓
//	    [lockfile] (graph.Graph or graph.Tree)
//	         ↓
//	    [graph.Walk] (depth-first, cycle-suppressed)
//	         ↓
//	    [install] per visit: [layout] → [source] → [linker] → recurse → [lifecycle]
//	         ↓
//	    [shim] rewrites node_modules/.bin, then root scripts run
//
// # Quick Start
//
//	project, err := lockfile.Load(".", lockfile.Options{})
//	if err != nil {
//	    return err
//	}
//	in := install.New(project.Dir, install.Options{Logger: logger})
//	res, err := in.Install(ctx, project.Source)
//
// [graph]: github.com/matzehuels/nodestore/pkg/graph
// [graph.Walk]: github.com/matzehuels/nodestore/pkg/graph#Walk
// [layout]: github.com/matzehuels/nodestore/pkg/layout
// [source]: github.com/matzehuels/nodestore/pkg/source
// [linker]: github.com/matzehuels/nodestore/pkg/linker
// [shim]: github.com/matzehuels/nodestore/pkg/shim
// [lifecycle]: github.com/matzehuels/nodestore/pkg/lifecycle
// [install]: github.com/matzehuels/nodestore/pkg/install
// [lockfile]: github.com/matzehuels/nodestore/pkg/lockfile
// [manifest]: github.com/matzehuels/nodestore/pkg/manifest
// [config]: github.com/matzehuels/nodestore/pkg/config
// [cache]: github.com/matzehuels/nodestore/pkg/cache
// [errors]: github.com/matzehuels/nodestore/pkg/errors
// [observability]: github.com/matzehuels/nodestore/pkg/observability
// [render]: github.com/matzehuels/nodestore/pkg/render
// [buildinfo]: github.com/matzehuels/nodestore/pkg/buildinfo
package pkg
