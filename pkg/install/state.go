package install

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/nodestore/pkg/graph"
)

// State is the per-run memory of an install. Both sets only grow.
type State struct {
	// Unpacked holds identities whose store entry has been materialized.
	Unpacked graph.Set
	// Scripted holds identities whose dependency scripts have been handled,
	// whether or not they declared any.
	Scripted graph.Set
}

// Counters summarize an install run.
type Counters struct {
	Visited  int // visitor calls, root included
	Unpacked int // store entries materialized
	Linked   int // symlinks created (existing identical links not counted)
	Bins     int // .bin entries exposed for root dependencies
	Skipped  int // removed optional dependencies
	Scripts  int // lifecycle scripts run
	Shims    int // .bin links rewritten into wrapper scripts
}

// Result is returned by a completed install.
type Result struct {
	RunID    uuid.UUID
	State    *State
	Counters Counters
	Duration time.Duration
}
