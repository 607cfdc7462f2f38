// Package cli implements the nodestore command-line interface.
//
// # Commands
//
//   - install: materialize package-lock.json into node_modules (the default)
//   - plan: print the store layout without touching the filesystem
//   - graph: export the plan as Graphviz DOT or SVG
//   - store: list store entries or prune the ones no longer locked
//   - cache: inspect or clear the archive integrity cache
//   - version, completion
//
// Settings come from nodestore.toml, .env and NODESTORE_* variables in the
// project directory; flags override them when given.
//
// # Output
//
// Progress and summaries go to stdout, styled with lipgloss when stdout is
// a terminal. Log lines go to stderr through charmbracelet/log; --verbose
// switches to debug level. The logger travels on the command context
// ([withLogger], [loggerFromContext]).
package cli
